package server

import (
	"campus/internal/middleware"
	"campus/internal/models"
	"campus/internal/service"

	"github.com/gofiber/fiber/v2"
)

// LoginRequest is the login form.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register godoc
// @Summary Register a user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.RegisterInput true "Registration"
// @Success 200 {object} map[string]interface{}
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req service.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return respondJSONError(c, models.ErrMissingFields)
	}

	result, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": result.User, "token": result.Token})
}

// Login godoc
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]interface{}
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return respondJSONError(c, models.ErrMissingFields)
	}

	result, err := s.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "user": result.User, "token": result.Token})
}

// CheckAuth godoc
// @Summary Verify the bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/check [get]
func (s *Server) CheckAuth(c *fiber.Ctx) error {
	username, _ := c.Locals("username").(string)
	return c.JSON(fiber.Map{"ok": true, "username": username})
}

// Logout godoc
// @Summary Revoke the bearer token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("claims").(*middleware.Claims)
	if err := s.authService.Logout(c.UserContext(), claims); err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "msg": "logout-successful"})
}
