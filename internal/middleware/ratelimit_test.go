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

var loginRule = Rule{Name: "login", Limit: 2, Window: time.Minute}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func okHandler(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) }

func TestLimiter_DisabledSkipsStore(t *testing.T) {
	allowed, _, err := NewLimiter(nil, false).Allow(context.Background(), loginRule, "ip:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_CountsPerWindow(t *testing.T) {
	mr, rdb := newTestRedis(t)
	limiter := NewLimiter(rdb, true)
	ctx := context.Background()

	for i := 0; i < loginRule.Limit; i++ {
		allowed, _, err := limiter.Allow(ctx, loginRule, "ip:1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, retry, err := limiter.Allow(ctx, loginRule, "ip:1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	// other callers have their own counter
	allowed, _, err = limiter.Allow(ctx, loginRule, "ip:2")
	require.NoError(t, err)
	assert.True(t, allowed)

	mr.FastForward(2 * time.Minute)
	allowed, _, err = limiter.Allow(ctx, loginRule, "ip:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLimiter_FailPolicies(t *testing.T) {
	limiter := NewLimiter(nil, true)

	open := fiber.New()
	open.Get("/", limiter.Middleware(Rule{Name: "upload", Limit: 1, Window: time.Minute}), okHandler)
	resp, err := open.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	closed := fiber.New()
	closed.Get("/", limiter.Middleware(Rule{Name: "upload", Limit: 1, Window: time.Minute, Policy: FailClosed}), okHandler)
	resp, err = closed.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLimiter_Returns429WithRetryAfter(t *testing.T) {
	_, rdb := newTestRedis(t)

	app := fiber.New()
	app.Get("/", NewLimiter(rdb, true).Middleware(Rule{Name: "login", Limit: 1, Window: time.Minute}), okHandler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}
