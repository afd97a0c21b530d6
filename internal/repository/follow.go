package repository

import (
	"context"

	"minisocial/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores the directed follow edges between users.
type FollowRepository interface {
	Toggle(ctx context.Context, followerID, followingID uint) (*models.FollowResult, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	Following(ctx context.Context, userID uint) ([]models.User, error)
	Followers(ctx context.Context, userID uint) ([]models.User, error)
}

type followRepository struct {
	store
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB, opts ...Option) FollowRepository {
	return &followRepository{store: newStore(db, opts)}
}

// Toggle flips the edge followerID -> followingID in one transaction. The
// follower row is locked so toggles by the same actor serialize.
func (r *followRepository) Toggle(ctx context.Context, followerID, followingID uint) (*models.FollowResult, error) {
	if followerID == followingID {
		return nil, models.NewInvalidOperationError("You cannot follow yourself")
	}

	ctx, done := r.bound(ctx, "follow.toggle")
	defer done()

	result := &models.FollowResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var actor models.User
		if err := lockForUpdate(tx).Select("id").First(&actor, followerID).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("User", followerID)
			}
			return err
		}
		var target models.User
		if err := tx.Select("id").First(&target, followingID).Error; err != nil {
			if isNotFound(err) {
				return models.NewNotFoundError("User", followingID)
			}
			return err
		}

		del := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			Delete(&models.Follow{})
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			edge := models.Follow{FollowerID: followerID, FollowingID: followingID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
				return err
			}
			result.Followed = true
		}

		var err error
		if result.Following, err = pluckIDs(tx, "following_id", "follower_id", followerID); err != nil {
			return err
		}
		result.Followers, err = pluckIDs(tx, "follower_id", "following_id", followingID)
		return err
	})
	if err != nil {
		return nil, storeError("follow.toggle", err)
	}
	return result, nil
}

func pluckIDs(db *gorm.DB, column, keyColumn string, key uint) ([]uint, error) {
	ids := []uint{}
	err := db.Model(&models.Follow{}).
		Where(keyColumn+" = ?", key).
		Order(column).
		Pluck(column, &ids).Error
	return ids, err
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	ctx, done := r.bound(ctx, "follow.following_ids")
	defer done()

	ids, err := pluckIDs(r.reader(ctx), "following_id", "follower_id", userID)
	if err != nil {
		return nil, storeError("follow.following_ids", err)
	}
	return ids, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	ctx, done := r.bound(ctx, "follow.follower_ids")
	defer done()

	ids, err := pluckIDs(r.reader(ctx), "follower_id", "following_id", userID)
	if err != nil {
		return nil, storeError("follow.follower_ids", err)
	}
	return ids, nil
}

// Following returns the users userID follows, ordered by id.
func (r *followRepository) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return r.joinUsers(ctx, "follow.following", "follows.following_id", "follows.follower_id", userID)
}

// Followers returns the users following userID, ordered by id.
func (r *followRepository) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return r.joinUsers(ctx, "follow.followers", "follows.follower_id", "follows.following_id", userID)
}

func (r *followRepository) joinUsers(ctx context.Context, op, joinColumn, keyColumn string, userID uint) ([]models.User, error) {
	ctx, done := r.bound(ctx, op)
	defer done()

	users := []models.User{}
	if err := r.reader(ctx).
		Joins("JOIN follows ON users.id = "+joinColumn).
		Where(keyColumn+" = ?", userID).
		Order("users.id").
		Find(&users).Error; err != nil {
		return nil, storeError(op, err)
	}
	return users, nil
}
