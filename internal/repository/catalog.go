package repository

import (
	"context"
	"errors"

	"campus/internal/models"

	"gorm.io/gorm"
)

// CatalogRepository reads subjects and variants. The core never writes them.
type CatalogRepository interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListVariants(ctx context.Context) ([]models.Variant, error)
	ListVariantsBySubject(ctx context.Context, subjectID uint) ([]models.Variant, error)
	GetVariant(ctx context.Context, id uint) (*models.Variant, error)
}

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository returns a new CatalogRepository implementation.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&subjects).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return subjects, nil
}

func (r *catalogRepository) ListVariants(ctx context.Context) ([]models.Variant, error) {
	var variants []models.Variant
	if err := r.db.WithContext(ctx).Order("subject_id ASC, name ASC").Find(&variants).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return variants, nil
}

func (r *catalogRepository) ListVariantsBySubject(ctx context.Context, subjectID uint) ([]models.Variant, error) {
	var variants []models.Variant
	if err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("name ASC").
		Find(&variants).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return variants, nil
}

func (r *catalogRepository) GetVariant(ctx context.Context, id uint) (*models.Variant, error) {
	var variant models.Variant
	if err := r.db.WithContext(ctx).First(&variant, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrVariantNotFound
		}
		return nil, models.NewInternalError(err)
	}
	return &variant, nil
}
