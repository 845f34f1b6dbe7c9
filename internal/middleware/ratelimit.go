package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when the counter store is unreachable.
type FailPolicy int

const (
	// FailOpen lets the request through.
	FailOpen FailPolicy = iota
	// FailClosed answers 503.
	FailClosed
)

var errNoCounterStore = errors.New("rate limit store not configured")

// Rule is a fixed-window quota applied to one route.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
	Policy FailPolicy
}

// Limiter counts requests per rule and caller in Redis.
type Limiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewLimiter returns a limiter. A disabled limiter allows everything and
// never touches Redis.
func NewLimiter(rdb *redis.Client, enabled bool) *Limiter {
	return &Limiter{rdb: rdb, enabled: enabled}
}

func counterKey(rule, subject string) string {
	return "rl:" + rule + ":" + subject
}

// Allow records one hit for subject under rule. When the quota is spent it
// returns false with the time left in the current window.
func (l *Limiter) Allow(ctx context.Context, rule Rule, subject string) (bool, time.Duration, error) {
	if !l.enabled {
		return true, 0, nil
	}
	if l.rdb == nil {
		return false, 0, errNoCounterStore
	}

	key := counterKey(rule.Name, subject)
	hits, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if hits == 1 {
		if err := l.rdb.Expire(ctx, key, rule.Window).Err(); err != nil {
			return false, 0, err
		}
	}
	if hits <= int64(rule.Limit) {
		return true, 0, nil
	}

	ttl, err := l.rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = rule.Window
	}
	return false, ttl, nil
}

// callerID keys authenticated callers by account and the rest by address.
func callerID(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// Middleware enforces rule on the route it is mounted on.
func (l *Limiter) Middleware(rule Rule) fiber.Handler {
	if rule.Name == "" {
		rule.Name = "default"
	}
	return func(c *fiber.Ctx) error {
		ok, retryAfter, err := l.Allow(c.UserContext(), rule, callerID(c))
		if err != nil {
			if rule.Policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit store unavailable, rejecting",
				slog.String("rule", rule.Name),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"ok":  false,
				"msg": "rate-limit-unavailable",
			})
		}
		if !ok {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"ok":  false,
				"msg": "too-many-requests",
			})
		}
		return c.Next()
	}
}
