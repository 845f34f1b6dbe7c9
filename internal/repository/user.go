// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"

	"campus/internal/database"
	"campus/internal/models"

	"gorm.io/gorm"
)

// UserRepository stores accounts. Users are immutable after registration.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// findOne returns nil, nil when nothing matches.
func (r *userRepository) findOne(ctx context.Context, query any, args ...any) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(query, args...).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := r.findOne(ctx, "id = ?", id)
	if err == nil && user == nil {
		return nil, models.NewNotFoundError("user-not-found", id)
	}
	return user, err
}

// GetByUsername returns nil, nil when no user has the name.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// Create inserts user. A taken username or email is a conflict.
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	switch {
	case err == nil:
		return nil
	case database.IsUniqueViolation(err):
		return models.NewConflictError(models.MsgUsernameTaken, err)
	default:
		return models.NewInternalError(err)
	}
}
