package repository

import (
	"context"
	"errors"

	"campus/internal/models"

	"gorm.io/gorm"
)

// ResourceRepository persists resource metadata rows.
type ResourceRepository interface {
	Create(ctx context.Context, resource *models.Resource) error
	GetByID(ctx context.Context, id uint) (*models.Resource, error)
	ListByVariant(ctx context.Context, variantID uint) ([]models.Resource, error)
	ListByCreator(ctx context.Context, userID uint) ([]models.Resource, error)
	Delete(ctx context.Context, id uint) error
	// ExistingFilePaths returns the subset of paths referenced by a resource row.
	ExistingFilePaths(ctx context.Context, paths []string) (map[string]bool, error)
	// EachBatch visits every resource row in id order, batchSize rows at a time.
	EachBatch(ctx context.Context, batchSize int, fn func(batch []models.Resource) error) error
}

type resourceRepository struct {
	db *gorm.DB
}

// NewResourceRepository returns a new ResourceRepository implementation.
func NewResourceRepository(db *gorm.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

func (r *resourceRepository) Create(ctx context.Context, resource *models.Resource) error {
	if err := r.db.WithContext(ctx).Create(resource).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id uint) (*models.Resource, error) {
	var resource models.Resource
	if err := r.db.WithContext(ctx).First(&resource, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrResourceNotFound
		}
		return nil, models.NewInternalError(err)
	}
	return &resource, nil
}

func (r *resourceRepository) ListByVariant(ctx context.Context, variantID uint) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("id ASC").
		Find(&resources).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return resources, nil
}

func (r *resourceRepository) ListByCreator(ctx context.Context, userID uint) ([]models.Resource, error) {
	var resources []models.Resource
	if err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("id ASC").
		Find(&resources).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return resources, nil
}

// Delete removes the row. A missing row yields ErrResourceNotFound.
func (r *resourceRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Resource{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrResourceNotFound
	}
	return nil
}

func (r *resourceRepository) ExistingFilePaths(ctx context.Context, paths []string) (map[string]bool, error) {
	found := make(map[string]bool, len(paths))
	if len(paths) == 0 {
		return found, nil
	}
	var rows []string
	if err := r.db.WithContext(ctx).
		Model(&models.Resource{}).
		Where("file_path IN ?", paths).
		Pluck("file_path", &rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, p := range rows {
		found[p] = true
	}
	return found, nil
}

func (r *resourceRepository) EachBatch(ctx context.Context, batchSize int, fn func(batch []models.Resource) error) error {
	if batchSize <= 0 {
		batchSize = 200
	}
	var batch []models.Resource
	res := r.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(batch)
		})
	if res.Error != nil {
		return res.Error
	}
	return nil
}
