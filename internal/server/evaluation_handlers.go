package server

import (
	"campus/internal/models"
	"campus/internal/service"

	"github.com/gofiber/fiber/v2"
)

// EvaluationRequest is the create and update body. Dates are ISO 8601 strings.
type EvaluationRequest struct {
	EvaluationID uint   `json:"idEvaluacion"`
	ResourceID   uint   `json:"idRecurso"`
	StartsAt     string `json:"fecha_inicio"`
	EndsAt       string `json:"fecha_fin"`
	Instructions string `json:"instrucciones"`
}

func (r EvaluationRequest) input() service.EvaluationInput {
	return service.EvaluationInput{
		ResourceID:   r.ResourceID,
		StartsAt:     r.StartsAt,
		EndsAt:       r.EndsAt,
		Instructions: r.Instructions,
	}
}

// CreateEvaluation godoc
// @Summary Schedule an evaluation on a resource
// @Tags evaluations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EvaluationRequest true "Evaluation"
// @Success 200 {object} map[string]interface{}
// @Router /evaluations [post]
func (s *Server) CreateEvaluation(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	var req EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondJSONError(c, models.ErrMissingFields)
	}

	eval, err := s.evaluationService.Create(c.UserContext(), userID, req.input())
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "id": eval.ID})
}

// GetEvaluationsByResource godoc
// @Summary List a resource's evaluations
// @Tags evaluations
// @Produce json
// @Security BearerAuth
// @Param idRecurso query int true "Resource ID"
// @Success 200 {object} map[string]interface{}
// @Router /evaluations/byResource [get]
func (s *Server) GetEvaluationsByResource(c *fiber.Ctx) error {
	evals, err := s.evaluationService.ListByResource(c.UserContext(), queryUint(c, "idRecurso"))
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": evals})
}

// UpdateEvaluation godoc
// @Summary Reschedule an evaluation
// @Tags evaluations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EvaluationRequest true "Evaluation"
// @Success 200 {object} map[string]interface{}
// @Router /evaluations [put]
func (s *Server) UpdateEvaluation(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	var req EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return respondJSONError(c, models.ErrMissingEvaluationID)
	}

	if err := s.evaluationService.Update(c.UserContext(), userID, req.EvaluationID, req.input()); err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "msg": "evaluation-updated"})
}
