package service

import (
	"context"
	"time"

	"campus/internal/featureflags"
	"campus/internal/models"
	"campus/internal/repository"
)

// EvaluationInput is the create and update form. Dates arrive as strings.
type EvaluationInput struct {
	ResourceID   uint
	StartsAt     string
	EndsAt       string
	Instructions string
}

// EvaluationService schedules evaluations on resources.
type EvaluationService struct {
	evaluations repository.EvaluationRepository
	resources   repository.ResourceRepository
	authority   Authority
	flags       *featureflags.Manager
}

func NewEvaluationService(
	evaluations repository.EvaluationRepository,
	resources repository.ResourceRepository,
	authority Authority,
	flags *featureflags.Manager,
) *EvaluationService {
	return &EvaluationService{
		evaluations: evaluations,
		resources:   resources,
		authority:   authority,
		flags:       flags,
	}
}

// Create schedules an evaluation. Any authenticated user may create one unless
// strict_evaluations is on, which requires admin of the resource's variant.
func (s *EvaluationService) Create(ctx context.Context, actorID uint, in EvaluationInput) (*models.Evaluation, error) {
	if in.ResourceID == 0 {
		return nil, models.ErrMissingResourceID
	}
	starts, ends, err := parseWindow(in.StartsAt, in.EndsAt)
	if err != nil {
		return nil, err
	}

	resource, err := s.resources.GetByID(ctx, in.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := s.checkStrict(ctx, actorID, resource.VariantID); err != nil {
		return nil, err
	}

	evaluation := &models.Evaluation{
		ResourceID:   resource.ID,
		StartsAt:     starts,
		EndsAt:       ends,
		Instructions: in.Instructions,
	}
	if err := s.evaluations.Create(ctx, evaluation); err != nil {
		return nil, err
	}
	return evaluation, nil
}

// ListByResource returns a resource's evaluations ordered by start date.
func (s *EvaluationService) ListByResource(ctx context.Context, resourceID uint) ([]models.Evaluation, error) {
	if resourceID == 0 {
		return nil, models.ErrMissingResourceID
	}
	evaluations, err := s.evaluations.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(evaluations) == 0 {
		return nil, models.NewNotFoundError(models.MsgEvaluationsNotFound, resourceID)
	}
	return evaluations, nil
}

// Update rewrites an evaluation's dates and instructions.
func (s *EvaluationService) Update(ctx context.Context, actorID, evaluationID uint, in EvaluationInput) error {
	if evaluationID == 0 {
		return models.ErrMissingEvaluationID
	}
	starts, ends, err := parseWindow(in.StartsAt, in.EndsAt)
	if err != nil {
		return err
	}

	if s.flags.Enabled(featureflags.StrictEvaluations, actorID) {
		current, err := s.evaluations.GetByID(ctx, evaluationID)
		if err != nil {
			return err
		}
		resource, err := s.resources.GetByID(ctx, current.ResourceID)
		if err != nil {
			return err
		}
		if err := s.checkStrict(ctx, actorID, resource.VariantID); err != nil {
			return err
		}
	}

	return s.evaluations.Update(ctx, &models.Evaluation{
		ID:           evaluationID,
		StartsAt:     starts,
		EndsAt:       ends,
		Instructions: in.Instructions,
	})
}

func (s *EvaluationService) checkStrict(ctx context.Context, actorID, variantID uint) error {
	if !s.flags.Enabled(featureflags.StrictEvaluations, actorID) {
		return nil
	}
	ok, err := s.authority.IsAdmin(ctx, actorID, variantID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("variant admin role required for evaluations")
	}
	return nil
}

func parseWindow(startsRaw, endsRaw string) (starts, ends time.Time, err error) {
	if startsRaw == "" || endsRaw == "" {
		return starts, ends, models.ErrMissingFields
	}
	var ok bool
	if starts, ok = parseDate(startsRaw); !ok {
		return starts, ends, models.ErrInvalidDates
	}
	if ends, ok = parseDate(endsRaw); !ok {
		return starts, ends, models.ErrInvalidDates
	}
	if ends.Before(starts) {
		return starts, ends, models.ErrInvalidDates
	}
	return starts, ends, nil
}
