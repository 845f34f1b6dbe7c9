package repository

import (
	"context"
	"errors"
	"time"

	"campus/internal/models"

	"gorm.io/gorm"
)

// EvaluationRepository persists evaluations.
type EvaluationRepository interface {
	Create(ctx context.Context, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, id uint) (*models.Evaluation, error)
	ListByResource(ctx context.Context, resourceID uint) ([]models.Evaluation, error)
	Update(ctx context.Context, evaluation *models.Evaluation) error
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository returns a new EvaluationRepository implementation.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if err := r.db.WithContext(ctx).Create(evaluation).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (*models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.db.WithContext(ctx).First(&evaluation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrEvaluationNotFound
		}
		return nil, models.NewInternalError(err)
	}
	return &evaluation, nil
}

func (r *evaluationRepository) ListByResource(ctx context.Context, resourceID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	if err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("starts_at ASC").
		Find(&evaluations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return evaluations, nil
}

// Update rewrites dates and instructions. No matching row yields ErrEvaluationNotFound.
func (r *evaluationRepository) Update(ctx context.Context, evaluation *models.Evaluation) error {
	res := r.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("id = ?", evaluation.ID).
		Updates(map[string]any{
			"starts_at":    evaluation.StartsAt,
			"ends_at":      evaluation.EndsAt,
			"instructions": evaluation.Instructions,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.ErrEvaluationNotFound
	}
	return nil
}
