package service

import (
	"context"

	"minisocial/internal/models"
	"minisocial/internal/observability"
	"minisocial/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const maxFeedLimit = 100

type FeedService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	postRepo   repository.PostRepository
}

// FeedQuery selects a page of a user's feed. Limit 0 returns everything;
// BeforeID continues after a previously returned post.
type FeedQuery struct {
	UserID   uint
	Limit    int
	BeforeID uint
}

func NewFeedService(userRepo repository.UserRepository, followRepo repository.FollowRepository, postRepo repository.PostRepository) *FeedService {
	return &FeedService{userRepo: userRepo, followRepo: followRepo, postRepo: postRepo}
}

// ComposeFeed returns the posts of the user and everyone they follow,
// newest first with ties broken by id, authors and commenters resolved.
func (s *FeedService) ComposeFeed(ctx context.Context, q FeedQuery) (feed []models.FeedPost, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FeedService", "ComposeFeed",
		attribute.Int64("user.id", int64(q.UserID)))
	defer func() { observability.EndSpan(span, err) }()

	if q.Limit < 0 {
		return nil, models.NewValidationError("limit must be 0 or more")
	}
	if q.Limit > maxFeedLimit {
		q.Limit = maxFeedLimit
	}

	var following []uint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.userRepo.GetByID(gctx, q.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		following, err = s.followRepo.FollowingIDs(gctx, q.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	authors := models.NewIDSet(following...)
	authors.Add(q.UserID)

	posts, err := s.postRepo.ListByAuthors(ctx, repository.FeedPage{
		AuthorIDs: authors.Slice(),
		Limit:     q.Limit,
		BeforeID:  q.BeforeID,
	})
	if err != nil {
		return nil, err
	}

	people := models.NewIDSet()
	for i := range posts {
		people.Add(posts[i].UserID)
		for _, c := range posts[i].Comments {
			people.Add(c.UserID)
		}
	}
	users, err := s.userRepo.GetByIDs(ctx, people.Slice())
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.PublicUser, len(users))
	for i := range users {
		byID[users[i].ID] = users[i].Public()
	}

	feed = make([]models.FeedPost, 0, len(posts))
	for i := range posts {
		feed = append(feed, toFeedPost(&posts[i], byID, q.UserID))
	}
	observability.FeedSize.Observe(float64(len(feed)))
	return feed, nil
}

func toFeedPost(p *models.Post, people map[uint]models.PublicUser, viewerID uint) models.FeedPost {
	likes := p.LikeSet()
	out := models.FeedPost{
		ID:            p.ID,
		Author:        resolve(people, p.UserID),
		ContentText:   p.ContentText,
		MediaURL:      p.MediaURL,
		Likes:         likes.Slice(),
		LikesCount:    likes.Len(),
		LikedByViewer: likes.Has(viewerID),
		Comments:      make([]models.FeedComment, 0, len(p.Comments)),
		CreatedAt:     p.CreatedAt,
	}
	for _, c := range p.Comments {
		out.Comments = append(out.Comments, models.FeedComment{
			ID:          c.ID,
			Author:      resolve(people, c.UserID),
			CommentText: c.CommentText,
			CreatedAt:   c.CreatedAt,
		})
	}
	return out
}

// resolve falls back to a bare id when the user row is gone.
func resolve(people map[uint]models.PublicUser, id uint) models.PublicUser {
	if u, ok := people[id]; ok {
		return u
	}
	return models.PublicUser{ID: id}
}
