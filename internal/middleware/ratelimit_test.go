package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func hit(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestCheckRateLimit(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := CheckRateLimit(ctx, rdb, "posts", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := CheckRateLimit(ctx, rdb, "posts", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// Other callers have their own window.
	allowed, err = CheckRateLimit(ctx, rdb, "posts", "user:2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(2 * time.Minute)
	allowed, err = CheckRateLimit(ctx, rdb, "posts", "user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = CheckRateLimit(ctx, nil, "posts", "user:1", 2, time.Minute)
	assert.Error(t, err)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("Bypass in test mode", func(t *testing.T) {
		t.Setenv("APP_ENV", "test")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		assert.Equal(t, http.StatusOK, hit(t, app, "/test"))
		assert.Equal(t, http.StatusOK, hit(t, app, "/test"))
	})

	t.Run("Local limiter without redis in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		app := fiber.New()
		app.Get("/test", RateLimit(nil, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		assert.Equal(t, http.StatusOK, hit(t, app, "/test"))
		assert.Equal(t, http.StatusTooManyRequests, hit(t, app, "/test"))
	})

	t.Run("Redis limiter in production", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		_, rdb := newMiniRedis(t)
		app := fiber.New()
		app.Get("/test", RateLimit(rdb, 2, time.Minute, "feed"), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		assert.Equal(t, http.StatusOK, hit(t, app, "/test"))
		assert.Equal(t, http.StatusOK, hit(t, app, "/test"))
		assert.Equal(t, http.StatusTooManyRequests, hit(t, app, "/test"))
	})

	t.Run("FailClosed when redis is down", func(t *testing.T) {
		t.Setenv("APP_ENV", "production")
		mr, rdb := newMiniRedis(t)
		mr.Close()

		app := fiber.New()
		app.Get("/open", RateLimit(rdb, 1, time.Minute), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		app.Get("/closed", RateLimitWithPolicy(rdb, 1, time.Minute, FailClosed), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		assert.Equal(t, http.StatusOK, hit(t, app, "/open"))
		assert.Equal(t, http.StatusServiceUnavailable, hit(t, app, "/closed"))
	})
}
