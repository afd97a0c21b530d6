package service

import (
	"context"
	"strings"

	"minisocial/internal/cache"
	"minisocial/internal/featureflags"
	"minisocial/internal/models"
	"minisocial/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type UserService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	rdb        *redis.Client
	flags      *featureflags.Manager
}

// NewUserService returns a UserService. Profiles are cached in rdb while
// the profile_cache flag is on; a nil rdb or flags manager disables caching.
func NewUserService(userRepo repository.UserRepository, followRepo repository.FollowRepository, rdb *redis.Client, flags *featureflags.Manager) *UserService {
	return &UserService{userRepo: userRepo, followRepo: followRepo, rdb: rdb, flags: flags}
}

// SearchUsers matches query case-insensitively against usernames. A blank
// query returns no users without touching the store.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit int) ([]models.PublicUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.PublicUser{}, nil
	}
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	users, err := s.userRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}

// GetUserProfile returns userID's profile with both follow lists resolved.
func (s *UserService) GetUserProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	rdb := s.rdb
	if !s.flags.EnabledGlobally(featureflags.ProfileCache) {
		rdb = nil
	}
	key, ok := cache.CurrentProfileKey(ctx, rdb, userID)
	if !ok {
		rdb = nil
	}
	return cache.Aside(ctx, rdb, "profile", key, cache.ProfileTTL,
		func(ctx context.Context) (*models.UserProfile, error) {
			return s.loadProfile(ctx, userID)
		})
}

func (s *UserService) loadProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var following, followers []models.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		following, err = s.followRepo.Following(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		followers, err = s.followRepo.Followers(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.UserProfile{
		ID:            user.ID,
		Username:      user.Username,
		ProfilePicURL: user.ProfilePicURL,
		Bio:           user.Bio,
		Following:     publicUsers(following),
		Followers:     publicUsers(followers),
		CreatedAt:     user.CreatedAt,
	}, nil
}

func publicUsers(users []models.User) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}
