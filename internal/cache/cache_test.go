package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewClient(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestAside_LoadsOnceThenHits(t *testing.T) {
	mr, rdb := setupRedis(t)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (profile, error) {
		calls++
		return profile{ID: 1, Name: "ana"}, nil
	}

	got, err := Aside(ctx, rdb, "profile", ProfileKey(1, 0), time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Name)

	got, err = Aside(ctx, rdb, "profile", ProfileKey(1, 0), time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, "ana", got.Name)
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists(ProfileKey(1, 0)))

	mr.FastForward(2 * time.Minute)
	_, err = Aside(ctx, rdb, "profile", ProfileKey(1, 0), time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestAside_ErrorsAreNotCached(t *testing.T) {
	mr, rdb := setupRedis(t)
	boom := errors.New("boom")

	_, err := Aside(context.Background(), rdb, "profile", ProfileKey(2, 0), time.Minute, func(context.Context) (profile, error) {
		return profile{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(ProfileKey(2, 0)))
}

func TestAside_RedisDownFallsBackToLoad(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()

	got, err := Aside(context.Background(), rdb, "profile", ProfileKey(3, 0), time.Minute, func(context.Context) (profile, error) {
		return profile{ID: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), got.ID)
}

func TestAside_NilClient(t *testing.T) {
	got, err := Aside(context.Background(), nil, "profile", ProfileKey(4, 0), time.Minute, func(context.Context) (profile, error) {
		return profile{ID: 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(4), got.ID)
}

func TestInvalidateProfiles(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()

	before := map[uint]string{}
	for _, id := range []uint{1, 2, 3} {
		key, ok := CurrentProfileKey(ctx, rdb, id)
		require.True(t, ok)
		assert.Equal(t, ProfileKey(id, 0), key)
		before[id] = key
	}

	InvalidateProfiles(ctx, rdb, 1, 2)

	for id, want := range map[uint]string{1: ProfileKey(1, 1), 2: ProfileKey(2, 1), 3: before[3]} {
		key, ok := CurrentProfileKey(ctx, rdb, id)
		require.True(t, ok)
		assert.Equal(t, want, key)
	}

	// nil client is tolerated
	InvalidateProfiles(ctx, nil, 3)
	_, ok := CurrentProfileKey(ctx, nil, 3)
	assert.False(t, ok)
}

// A load that read the generation before an invalidation and wrote after
// it must not be served afterwards.
func TestInvalidateProfiles_LateWriteIsNotServed(t *testing.T) {
	_, rdb := setupRedis(t)
	ctx := context.Background()

	staleKey, ok := CurrentProfileKey(ctx, rdb, 7)
	require.True(t, ok)

	InvalidateProfiles(ctx, rdb, 7)

	_, err := Aside(ctx, rdb, "profile", staleKey, time.Minute, func(context.Context) (profile, error) {
		return profile{ID: 7, Name: "stale"}, nil
	})
	require.NoError(t, err)

	freshKey, ok := CurrentProfileKey(ctx, rdb, 7)
	require.True(t, ok)
	got, err := Aside(ctx, rdb, "profile", freshKey, time.Minute, func(context.Context) (profile, error) {
		return profile{ID: 7, Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.Name)
}

func TestInitRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Cleanup(func() { SetClient(nil) })

	assert.NotNil(t, InitRedis("redis://"+mr.Addr()+"/0"))
	assert.NotNil(t, GetClient())

	assert.Nil(t, InitRedis("redis://%zz"))
	assert.Nil(t, GetClient())
}
