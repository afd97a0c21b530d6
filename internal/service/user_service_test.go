package service

import (
	"context"
	"testing"

	"minisocial/internal/cache"
	"minisocial/internal/featureflags"
	"minisocial/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_SearchUsers(t *testing.T) {
	var gotLimit int
	users := &userRepoStub{searchFn: func(_ context.Context, q string, limit int) ([]models.User, error) {
		assert.Equal(t, "an", q)
		gotLimit = limit
		return []models.User{{ID: 1, Username: "Ana", Password: "hash"}}, nil
	}}
	svc := NewUserService(users, noopFollowRepo(), nil, nil)

	got, err := svc.SearchUsers(context.Background(), "  an ", 0)
	require.NoError(t, err)
	assert.Equal(t, []models.PublicUser{{ID: 1, Username: "Ana"}}, got)
	assert.Equal(t, defaultSearchLimit, gotLimit)

	_, err = svc.SearchUsers(context.Background(), "an", 1000)
	require.NoError(t, err)
	assert.Equal(t, maxSearchLimit, gotLimit)
}

func TestUserService_SearchUsers_BlankQuery(t *testing.T) {
	users := &userRepoStub{searchFn: func(context.Context, string, int) ([]models.User, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}}
	svc := NewUserService(users, noopFollowRepo(), nil, nil)

	for _, q := range []string{"", "   "} {
		got, err := svc.SearchUsers(context.Background(), q, 10)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestUserService_GetUserProfile(t *testing.T) {
	users := usersByID(models.User{ID: 1, Username: "ana", Password: "hash", Bio: "hi"})
	follows := noopFollowRepo()
	follows.followingFn = func(context.Context, uint) ([]models.User, error) {
		return []models.User{{ID: 2, Username: "bo"}}, nil
	}
	follows.followersFn = func(context.Context, uint) ([]models.User, error) {
		return []models.User{{ID: 3, Username: "cy"}}, nil
	}
	svc := NewUserService(users, follows, nil, nil)

	profile, err := svc.GetUserProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "ana", profile.Username)
	assert.Equal(t, "hi", profile.Bio)
	assert.Equal(t, []models.PublicUser{{ID: 2, Username: "bo"}}, profile.Following)
	assert.Equal(t, []models.PublicUser{{ID: 3, Username: "cy"}}, profile.Followers)

	_, err = svc.GetUserProfile(context.Background(), 9)
	assert.True(t, models.IsNotFound(err))
}

func TestUserService_GetUserProfile_Cached(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	loads := 0
	users := usersByID(models.User{ID: 1, Username: "ana"})
	inner := users.getByIDFn
	users.getByIDFn = func(ctx context.Context, id uint) (*models.User, error) {
		loads++
		return inner(ctx, id)
	}
	svc := NewUserService(users, noopFollowRepo(), rdb, featureflags.NewManager("profile_cache=on"))

	for i := 0; i < 3; i++ {
		p, err := svc.GetUserProfile(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "ana", p.Username)
	}
	assert.Equal(t, 1, loads)
	assert.True(t, mr.Exists(cache.ProfileKey(1, 0)))

	// A follow change moves the profile to a new generation and it reloads.
	cache.InvalidateProfiles(context.Background(), rdb, 1)
	_, err := svc.GetUserProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
	assert.True(t, mr.Exists(cache.ProfileKey(1, 1)))

	// Flag off bypasses the cache.
	off := NewUserService(users, noopFollowRepo(), rdb, featureflags.NewManager("profile_cache=off"))
	_, err = off.GetUserProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, loads)
}
