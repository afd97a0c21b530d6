package service

import (
	"context"
	"errors"
	"testing"

	"minisocial/internal/cache"
	"minisocial/internal/events"
	"minisocial/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService_SelfFollowRejected(t *testing.T) {
	called := false
	repo := &followRepoStub{toggleFn: func(context.Context, uint, uint) (*models.FollowResult, error) {
		called = true
		return nil, nil
	}}
	emitter := &recordingEmitter{}
	svc := NewFollowService(repo, nil, emitter)

	_, err := svc.ToggleFollow(context.Background(), 4, 4)
	assert.Equal(t, models.CodeInvalidOperation, models.ErrorCode(err))
	assert.False(t, called)
	assert.Zero(t, emitter.count())
}

func TestFollowService_ToggleInvalidatesProfilesAndEmits(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := &followRepoStub{toggleFn: func(_ context.Context, a, b uint) (*models.FollowResult, error) {
		return &models.FollowResult{Followed: true, Following: []uint{b}, Followers: []uint{a}}, nil
	}}
	emitter := &recordingEmitter{}
	svc := NewFollowService(repo, rdb, emitter)

	res, err := svc.ToggleFollow(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, res.Followed)

	for id, want := range map[uint]string{1: cache.ProfileKey(1, 1), 2: cache.ProfileKey(2, 1), 3: cache.ProfileKey(3, 0)} {
		key, ok := cache.CurrentProfileKey(context.Background(), rdb, id)
		require.True(t, ok)
		assert.Equal(t, want, key)
	}

	evt := emitter.last()
	assert.Equal(t, events.TypeFollowToggled, evt.Type)
	assert.Equal(t, []uint{2}, evt.Recipients)
}

func TestFollowService_StoreErrorPassesThrough(t *testing.T) {
	repo := &followRepoStub{toggleFn: func(context.Context, uint, uint) (*models.FollowResult, error) {
		return nil, models.NewStorageUnavailableError(errors.New("timeout"))
	}}
	emitter := &recordingEmitter{}
	svc := NewFollowService(repo, nil, emitter)

	_, err := svc.ToggleFollow(context.Background(), 1, 2)
	assert.Equal(t, models.CodeStorageUnavailable, models.ErrorCode(err))
	assert.Zero(t, emitter.count())
}
