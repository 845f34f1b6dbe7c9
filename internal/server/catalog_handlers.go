package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetSubjects godoc
// @Summary List subjects
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /subjects [get]
func (s *Server) GetSubjects(c *fiber.Ctx) error {
	subjects, err := s.catalogService.Subjects(c.UserContext())
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": subjects})
}

// GetVariants godoc
// @Summary List variants
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /variants [get]
func (s *Server) GetVariants(c *fiber.Ctx) error {
	variants, err := s.catalogService.Variants(c.UserContext())
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": variants})
}

// GetVariantsBySubject godoc
// @Summary List the variants of a subject
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param idAsignatura query int true "Subject ID"
// @Success 200 {object} map[string]interface{}
// @Router /variants/bySubject [get]
func (s *Server) GetVariantsBySubject(c *fiber.Ctx) error {
	variants, err := s.catalogService.VariantsBySubject(c.UserContext(), queryUint(c, "idAsignatura"))
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": variants})
}
