package service

import (
	"context"
	"strings"

	"minisocial/internal/events"
	"minisocial/internal/models"
	"minisocial/internal/observability"
	"minisocial/internal/repository"
	"minisocial/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	events      Emitter
}

type AddCommentInput struct {
	UserID uint   `json:"user_id" validate:"required"`
	PostID uint   `json:"post_id" validate:"required"`
	Text   string `json:"comment_text" validate:"notblank,max=2000"`
}

func NewCommentService(commentRepo repository.CommentRepository, emitter Emitter) *CommentService {
	return &CommentService{commentRepo: commentRepo, events: emitterOrNop(emitter)}
}

// AddComment appends a comment to a post and returns the post's full
// comment sequence. Text is trimmed and must not end up empty.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) ([]models.Comment, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	thread, err := s.commentRepo.Append(ctx, &models.Comment{
		PostID:      in.PostID,
		UserID:      in.UserID,
		CommentText: in.Text,
	})
	observability.RecordAction("add_comment", err == nil)
	if err != nil {
		return nil, err
	}

	var recipients []uint
	if thread.PostAuthorID != 0 && thread.PostAuthorID != in.UserID {
		recipients = []uint{thread.PostAuthorID}
	}
	s.events.Emit(ctx, events.New(events.TypeCommentAdded, in.UserID, map[string]any{
		"post_id":        in.PostID,
		"comments_count": len(thread.Comments),
	}, recipients...))

	return thread.Comments, nil
}
