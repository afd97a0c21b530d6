package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTLs for cached entities.
const (
	ProfileTTL = 5 * time.Minute

	// profileGenTTL outlives every entry written under a generation, so a
	// counter that expires and restarts at 0 finds no old entries left.
	profileGenTTL = 24 * time.Hour
)

// ProfileKey is the profile key of userID at generation gen.
func ProfileKey(userID uint, gen int64) string {
	return fmt.Sprintf("user:profile:%d:v%d", userID, gen)
}

func profileGenKey(userID uint) string {
	return fmt.Sprintf("user:profile:%d:gen", userID)
}

// CurrentProfileKey returns userID's profile key at its current generation.
// Read it before loading: a load that started before an invalidation then
// writes under a generation no reader asks for. ok is false when rdb is nil
// or the generation cannot be read; the caller should skip the cache.
func CurrentProfileKey(ctx context.Context, rdb *redis.Client, userID uint) (key string, ok bool) {
	if rdb == nil {
		return "", false
	}
	gen, err := rdb.Get(ctx, profileGenKey(userID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false
	}
	return ProfileKey(userID, gen), true
}

// Invalidate deletes keys from rdb. A nil client is a no-op.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	_ = rdb.Del(ctx, keys...).Err()
}

// InvalidateProfiles moves every listed user to a new profile generation.
// Entries under older generations are never read again and expire on their
// own TTL.
func InvalidateProfiles(ctx context.Context, rdb *redis.Client, userIDs ...uint) {
	if rdb == nil || len(userIDs) == 0 {
		return
	}
	_, _ = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, profileGenKey(id))
			pipe.Expire(ctx, profileGenKey(id), profileGenTTL)
		}
		return nil
	})
}
