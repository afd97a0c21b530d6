package repository

import (
	"context"
	"strings"

	"minisocial/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Search(ctx context.Context, query string, limit int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	store
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB, opts ...Option) UserRepository {
	return &userRepository{store: newStore(db, opts)}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	ctx, done := r.bound(ctx, "user.get")
	defer done()

	var user models.User
	if err := r.reader(ctx).First(&user, id).Error; err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, storeError("user.get", err)
	}
	return &user, nil
}

// GetByIDs resolves many users in one query. Unknown ids are skipped.
func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}

	ctx, done := r.bound(ctx, "user.get_many")
	defer done()

	if err := r.reader(ctx).Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
		return nil, storeError("user.get_many", err)
	}
	return users, nil
}

// GetByUsername returns nil, nil when no user has the exact username.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, done := r.bound(ctx, "user.get_by_username")
	defer done()

	var user models.User
	if err := r.reader(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storeError("user.get_by_username", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	ctx, done := r.bound(ctx, "user.create")
	defer done()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("User already exists")
		}
		return storeError("user.create", err)
	}
	return nil
}

// Search matches query as a literal, case-insensitive substring of the
// username. Results are in id order.
func (r *userRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	ctx, done := r.bound(ctx, "user.search")
	defer done()

	users := []models.User{}
	pattern := "%" + escapeLike(query) + "%"
	if err := r.reader(ctx).
		Where(`LOWER(username) LIKE LOWER(?) ESCAPE '\'`, pattern).
		Order("id").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, storeError("user.search", err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	ctx, done := r.bound(ctx, "user.count")
	defer done()

	var n int64
	if err := r.reader(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, storeError("user.count", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
