package repository

import (
	"context"
	"time"

	"minisocial/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository appends to and reads a post's comment sequence.
type CommentRepository interface {
	Append(ctx context.Context, comment *models.Comment) (*models.CommentThread, error)
	ListByPost(ctx context.Context, postID uint) ([]models.Comment, error)
}

type commentRepository struct {
	store
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB, opts ...Option) CommentRepository {
	return &commentRepository{store: newStore(db, opts)}
}

// Append inserts comment at the end of its post's sequence and returns the
// whole sequence as it stands after the insert.
func (r *commentRepository) Append(ctx context.Context, comment *models.Comment) (*models.CommentThread, error) {
	ctx, done := r.bound(ctx, "comment.append")
	defer done()

	thread := &models.CommentThread{PostID: comment.PostID, Comments: []models.Comment{}}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := lockForUpdate(tx).Select("id", "user_id").First(&post, comment.PostID).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Post", comment.PostID)
			}
			return err
		}

		thread.PostAuthorID = post.UserID

		if comment.CreatedAt.IsZero() {
			comment.CreatedAt = time.Now().UTC()
		}
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}

		return orderedComments(tx, comment.PostID).Find(&thread.Comments).Error
	})
	if err != nil {
		return nil, storeError("comment.append", err)
	}
	return thread, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]models.Comment, error) {
	ctx, done := r.bound(ctx, "comment.list")
	defer done()

	comments := []models.Comment{}
	if err := orderedComments(r.reader(ctx), postID).Find(&comments).Error; err != nil {
		return nil, storeError("comment.list", err)
	}
	return comments, nil
}

func orderedComments(db *gorm.DB, postID uint) *gorm.DB {
	return db.Where("post_id = ?", postID).Order("created_at ASC, id ASC")
}
