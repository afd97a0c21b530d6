package service

import (
	"context"
	"log/slog"

	"minisocial/internal/events"
	"minisocial/internal/middleware"
	"minisocial/internal/models"
	"minisocial/internal/observability"
	"minisocial/internal/repository"
	"minisocial/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type PostService struct {
	postRepo   repository.PostRepository
	followRepo repository.FollowRepository
	events     Emitter
}

type CreatePostInput struct {
	UserID      uint   `json:"user_id" validate:"required"`
	ContentText string `json:"content_text" validate:"max=5000"`
	MediaURL    string `json:"media_url" validate:"max=2048"`
}

func NewPostService(postRepo repository.PostRepository, followRepo repository.FollowRepository, emitter Emitter) *PostService {
	return &PostService{
		postRepo:   postRepo,
		followRepo: followRepo,
		events:     emitterOrNop(emitter),
	}
}

// CreatePost stores a new post owned by in.UserID with no likes and no
// comments. Both content and media are optional.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost",
		attribute.Int64("user.id", int64(in.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	post = &models.Post{
		UserID:      in.UserID,
		ContentText: in.ContentText,
		MediaURL:    in.MediaURL,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		observability.RecordAction("create_post", false)
		return nil, err
	}
	observability.RecordAction("create_post", true)
	post.LikeUserIDs = []uint{}
	post.Comments = []models.Comment{}

	followers, ferr := s.followRepo.FollowerIDs(ctx, in.UserID)
	if ferr != nil {
		middleware.Logger.WarnContext(ctx, "load followers for post event", slog.String("error", ferr.Error()))
	}
	s.events.Emit(ctx, events.New(events.TypePostCreated, in.UserID, map[string]any{
		"post_id": post.ID,
		"user_id": post.UserID,
	}, followers...))

	return post, nil
}

// GetPost returns a post with its likes and comments.
func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// ToggleLike likes postID for actorID if not yet liked, otherwise unlikes.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID uint) (res *models.LikeResult, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "ToggleLike",
		attribute.Int64("user.id", int64(actorID)),
		attribute.Int64("post.id", int64(postID)))
	defer func() { observability.EndSpan(span, err) }()

	res, err = s.postRepo.ToggleLike(ctx, postID, actorID)
	observability.RecordAction("toggle_like", err == nil)
	if err != nil {
		return nil, err
	}

	var recipients []uint
	if res.PostAuthorID != 0 && res.PostAuthorID != actorID {
		recipients = []uint{res.PostAuthorID}
	}
	s.events.Emit(ctx, events.New(events.TypeLikeToggled, actorID, map[string]any{
		"post_id":     postID,
		"liked":       res.Liked,
		"likes_count": res.LikesCount,
	}, recipients...))

	return res, nil
}
