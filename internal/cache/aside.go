package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"minisocial/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside reads key from rdb and falls back to load on a miss, storing the
// loaded value for ttl. Redis failures are treated as misses; load errors
// are returned unchanged and never cached. With a nil client it just calls
// load.
func Aside[T any](ctx context.Context, rdb *redis.Client, name, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if rdb == nil {
		return load(ctx)
	}

	raw, err := rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			observability.CacheLookups.WithLabelValues(name, "hit").Inc()
			return cached, nil
		}
		observability.CacheLookups.WithLabelValues(name, "error").Inc()
	case errors.Is(err, redis.Nil):
		observability.CacheLookups.WithLabelValues(name, "miss").Inc()
	default:
		observability.CacheLookups.WithLabelValues(name, "error").Inc()
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if data, err := json.Marshal(value); err == nil {
		_ = rdb.Set(ctx, key, data, ttl).Err()
	}
	return value, nil
}
