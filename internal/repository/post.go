package repository

import (
	"context"

	"minisocial/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListByAuthors(ctx context.Context, q FeedPage) ([]models.Post, error)
	ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeResult, error)
}

// FeedPage selects posts by a set of authors, newest first.
type FeedPage struct {
	AuthorIDs []uint
	// Limit <= 0 means no limit.
	Limit int
	// BeforeID, when set, returns only posts strictly older than that post
	// in (created_at, id) order.
	BeforeID uint
}

// postRepository implements PostRepository
type postRepository struct {
	store
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB, opts ...Option) PostRepository {
	return &postRepository{store: newStore(db, opts)}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, done := r.bound(ctx, "post.create")
	defer done()

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return storeError("post.create", err)
	}
	return nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Likes", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_id")
		}).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	ctx, done := r.bound(ctx, "post.get")
	defer done()

	var post models.Post
	if err := withDetails(r.reader(ctx)).First(&post, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, storeError("post.get", err)
	}
	fillLikeIDs(&post)
	return &post, nil
}

// ListByAuthors returns the posts written by any of q.AuthorIDs with likes
// and comments loaded, ordered by created_at then id, both descending.
func (r *postRepository) ListByAuthors(ctx context.Context, q FeedPage) ([]models.Post, error) {
	posts := []models.Post{}
	if len(q.AuthorIDs) == 0 {
		return posts, nil
	}

	ctx, done := r.bound(ctx, "post.list_by_authors")
	defer done()

	db := r.reader(ctx)
	query := withDetails(db).Where("user_id IN ?", q.AuthorIDs)

	if q.BeforeID != 0 {
		var cursor models.Post
		if err := db.Select("id", "created_at").First(&cursor, q.BeforeID).Error; err != nil {
			if isNotFound(err) {
				return nil, models.NewNotFoundError("Post", q.BeforeID)
			}
			return nil, storeError("post.list_by_authors", err)
		}
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	if err := query.Order("created_at DESC, id DESC").Find(&posts).Error; err != nil {
		return nil, storeError("post.list_by_authors", err)
	}
	for i := range posts {
		fillLikeIDs(&posts[i])
	}
	return posts, nil
}

// ToggleLike flips userID's like on postID. The post row is locked for the
// duration so concurrent toggles on one post serialize.
func (r *postRepository) ToggleLike(ctx context.Context, postID, userID uint) (*models.LikeResult, error) {
	ctx, done := r.bound(ctx, "post.toggle_like")
	defer done()

	result := &models.LikeResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := lockForUpdate(tx).Select("id", "user_id").First(&post, postID).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("Post", postID)
			}
			return err
		}
		result.PostAuthorID = post.UserID

		del := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			like := models.Like{PostID: postID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&like).Error; err != nil {
				return err
			}
			result.Liked = true
		}

		var count int64
		if err := tx.Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
			return err
		}
		result.LikesCount = int(count)
		return nil
	})
	if err != nil {
		return nil, storeError("post.toggle_like", err)
	}
	return result, nil
}

func fillLikeIDs(p *models.Post) {
	p.LikeUserIDs = p.LikeSet().Slice()
}
