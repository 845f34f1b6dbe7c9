// Package bootstrap wires the shared runtime dependencies used by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus/internal/cache"
	"campus/internal/config"
	"campus/internal/database"
	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/repository"
	"campus/internal/seed"
	"campus/internal/storage"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedCatalog bool
}

// Runtime holds the connections shared by the server and the tools.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Blobs storage.BlobStore
}

// InitRuntime connects to the database, Redis and blob storage and optionally
// seeds the built-in catalog. Redis is optional and may be nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(ctx, cfg.RedisURL)

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	if opts.SeedCatalog {
		if _, err := seed.Catalog(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to seed built-in catalog: %w", err)
		}
	}

	if err := ensureDevRoot(ctx, cfg, db); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development root: %w", err)
	}

	return &Runtime{DB: db, Redis: rdb, Blobs: blobs}, nil
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() error {
	var errs []error
	if sqlDB, err := r.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// ensureDevRoot creates or refreshes a development account that is admin of
// every variant. It bypasses the grant policy and only runs in development.
func ensureDevRoot(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "campus_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@campus.local"
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	var root models.User
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{Username: username, Email: email, Password: string(hashed)}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&root).Updates(map[string]any{"email": email, "password": string(hashed)}).Error
		}
	})
	if err != nil {
		return err
	}

	var variantIDs []uint
	if err := db.WithContext(ctx).Model(&models.Variant{}).Pluck("id", &variantIDs).Error; err != nil {
		return fmt.Errorf("list variants: %w", err)
	}
	memberships := repository.NewMembershipRepository(db)
	for _, id := range variantIDs {
		if _, _, err := memberships.UpsertRole(ctx, root.ID, id, models.RoleAdmin); err != nil {
			return fmt.Errorf("grant root admin on variant %d: %w", id, err)
		}
	}

	middleware.Logger.InfoContext(ctx, "development root ensured",
		"user_id", root.ID, "username", username, "variants", len(variantIDs))
	return nil
}
