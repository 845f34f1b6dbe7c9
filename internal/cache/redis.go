// Package cache holds the optional Redis client and the catalog read-through cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"campus/internal/middleware"
	"campus/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// client is shared by catalog invalidation. It is nil when Redis is not configured.
var client *redis.Client

// errorCounter counts failed commands. redis.Nil is a miss, not a failure.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countError(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countError("pipeline", err)
		return err
	}
}

func countError(command string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(command).Inc()
	}
}

// options accepts a redis:// URL or a bare host:port.
func options(addr string) (*redis.Options, error) {
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return opts, nil
}

// Connect dials Redis and installs the client for the package. The service
// runs without Redis, so an empty, malformed or unreachable address is
// logged and yields nil.
func Connect(ctx context.Context, addr string) *redis.Client {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		middleware.Logger.Warn("REDIS_URL not set, continuing without redis")
		SetClient(nil)
		return nil
	}

	opts, err := options(addr)
	if err != nil {
		middleware.Logger.Warn("continuing without redis", slog.String("error", err.Error()))
		SetClient(nil)
		return nil
	}

	c := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, continuing without redis",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = c.Close()
		SetClient(nil)
		return nil
	}

	middleware.Logger.Info("redis connected", slog.String("addr", opts.Addr))
	SetClient(c)
	return c
}

// GetClient returns the installed client, or nil.
func GetClient() *redis.Client {
	return client
}

// SetClient installs c as the package client.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}
