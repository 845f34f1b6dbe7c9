package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campus/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	SubjectsKey           = "catalog:subjects"
	VariantsKey           = "catalog:variants"
	VariantsBySubjectKeyF = "catalog:subject:%d:variants"
	VariantKeyF           = "catalog:variant:%d"
)

// CatalogTTL bounds staleness of the read-only catalog.
const CatalogTTL = 10 * time.Minute

func VariantsBySubjectKey(subjectID uint) string {
	return fmt.Sprintf(VariantsBySubjectKeyF, subjectID)
}

func VariantKey(variantID uint) string {
	return fmt.Sprintf(VariantKeyF, variantID)
}

// Aside reads key from Redis into a T, or calls load and stores the result for ttl.
// Redis errors degrade to calling load. Load errors are returned as is and nothing is cached.
func Aside[T any](ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if rdb != nil {
		raw, err := rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached T
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
			middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
		case !errors.Is(err, redis.Nil):
			middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	if rdb != nil {
		if payload, jsonErr := json.Marshal(value); jsonErr == nil {
			if setErr := rdb.Set(ctx, key, payload, ttl).Err(); setErr != nil {
				middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", setErr.Error()))
			}
		}
	}
	return value, nil
}

// Invalidate removes keys from the package client when one is configured.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateCatalog drops the catalog list entries.
func InvalidateCatalog(ctx context.Context) {
	Invalidate(ctx, SubjectsKey, VariantsKey)
}
