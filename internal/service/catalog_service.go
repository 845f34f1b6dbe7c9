package service

import (
	"context"

	"campus/internal/cache"
	"campus/internal/models"
	"campus/internal/repository"

	"github.com/redis/go-redis/v9"
)

// CatalogService serves the read-only subject and variant catalog through a Redis cache.
type CatalogService struct {
	repo repository.CatalogRepository
	rdb  *redis.Client
}

// NewCatalogService creates a CatalogService. A nil rdb disables caching.
func NewCatalogService(repo repository.CatalogRepository, rdb *redis.Client) *CatalogService {
	return &CatalogService{repo: repo, rdb: rdb}
}

func (s *CatalogService) Subjects(ctx context.Context) ([]models.Subject, error) {
	subjects, err := cache.Aside(ctx, s.rdb, cache.SubjectsKey, cache.CatalogTTL, s.repo.ListSubjects)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, models.ErrNoSubjectsFound
	}
	return subjects, nil
}

func (s *CatalogService) Variants(ctx context.Context) ([]models.Variant, error) {
	variants, err := cache.Aside(ctx, s.rdb, cache.VariantsKey, cache.CatalogTTL, s.repo.ListVariants)
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, models.ErrNoVariantsFound
	}
	return variants, nil
}

func (s *CatalogService) VariantsBySubject(ctx context.Context, subjectID uint) ([]models.Variant, error) {
	if subjectID == 0 {
		return nil, models.ErrMissingFields
	}
	variants, err := cache.Aside(ctx, s.rdb, cache.VariantsBySubjectKey(subjectID), cache.CatalogTTL,
		func(ctx context.Context) ([]models.Variant, error) {
			return s.repo.ListVariantsBySubject(ctx, subjectID)
		})
	if err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, models.ErrNoVariantsFound
	}
	return variants, nil
}

// Variant returns one variant or VariantNotFound.
func (s *CatalogService) Variant(ctx context.Context, variantID uint) (*models.Variant, error) {
	if variantID == 0 {
		return nil, models.ErrMissingFields
	}
	return cache.Aside(ctx, s.rdb, cache.VariantKey(variantID), cache.CatalogTTL,
		func(ctx context.Context) (*models.Variant, error) {
			return s.repo.GetVariant(ctx, variantID)
		})
}
