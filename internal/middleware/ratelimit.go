package middleware

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

// rateLimitDisabled reports whether APP_ENV turns throttling off. Dev and
// test runs are never throttled.
func rateLimitDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development", "stress":
		return true
	}
	return false
}

// CheckRateLimit checks if a resource has exceeded its rate limit using a
// fixed window counter in Redis. Returns true if allowed.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		RedisErrors.WithLabelValues("incr").Inc()
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// localLimiter is the in-process token bucket used when no Redis client is
// configured. Limits are per instance.
type localLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	visitors map[string]*rate.Limiter
}

func newLocalLimiter(limit int, window time.Duration) *localLimiter {
	return &localLimiter{
		limit:    rate.Every(window / time.Duration(max(limit, 1))),
		burst:    max(limit, 1),
		visitors: make(map[string]*rate.Limiter),
	}
}

func (l *localLimiter) allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.visitors[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.visitors[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated userID (if set in c.Locals("userID")) otherwise by remote IP.
// It defaults to FailOpen policy.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy returns a Fiber middleware enforcing `limit` requests per `window` with a specific failure policy.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return newRateLimitHandler(rdb, limit, window, policy, rateLimitDisabled, name...)
}

func newRateLimitHandler(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, disabled func() bool, name ...string) fiber.Handler {
	local := newLocalLimiter(limit, window)

	return func(c *fiber.Ctx) error {
		if disabled() {
			return c.Next()
		}

		var id string
		if uid := c.Locals("userID"); uid != nil {
			id = fmt.Sprintf("user:%v", uid)
		} else {
			id = fmt.Sprintf("ip:%s", c.IP())
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		var allowed bool
		if rdb == nil {
			allowed = local.allow(resource + "|" + id)
		} else {
			var err error
			allowed, err = CheckRateLimit(c.UserContext(), rdb, resource, id, limit, window)
			if err != nil {
				if policy == FailClosed {
					Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
						"path", c.Path(), "resource", resource, "error", err)
					return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
						"error": "rate limit unavailable",
					})
				}
				return c.Next()
			}
		}

		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
