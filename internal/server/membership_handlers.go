package server

import (
	"strings"

	"campus/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SubscriptionStateRequest is the body of PUT /subscriptions/state.
// Older clients send the Spanish field name.
type SubscriptionStateRequest struct {
	State  string `json:"state"`
	Estado string `json:"estado"`
}

// RoleRequest grants or changes a role. UserID defaults to the caller.
type RoleRequest struct {
	UserID    uint   `json:"idUsuario"`
	VariantID uint   `json:"idVariante"`
	Role      string `json:"rol"`
}

// CreateSubscription godoc
// @Summary Subscribe the caller to a variant
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Param idVariante query int true "Variant ID"
// @Success 200 {object} map[string]interface{}
// @Router /subscriptions [post]
func (s *Server) CreateSubscription(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	result, err := s.membershipService.CreateSubscription(c.UserContext(), userID, queryUint(c, "idVariante"))
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{
		"ok":             true,
		"subscriptionId": result.SubscriptionID,
		"userVariant":    result.Membership,
	})
}

// UpdateSubscriptionState godoc
// @Summary Activate or deactivate one of the caller's subscriptions
// @Tags subscriptions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param idSuscripcion query int true "Subscription ID"
// @Param request body SubscriptionStateRequest true "New state"
// @Success 200 {object} map[string]interface{}
// @Router /subscriptions/state [put]
func (s *Server) UpdateSubscriptionState(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	var req SubscriptionStateRequest
	if err := c.BodyParser(&req); err != nil {
		return respondJSONError(c, models.ErrMissingFields)
	}
	state := strings.TrimSpace(req.State)
	if state == "" {
		state = strings.TrimSpace(req.Estado)
	}
	subscriptionID := queryUint(c, "idSuscripcion")
	if subscriptionID == 0 || state == "" {
		return respondJSONError(c, models.ErrMissingFields)
	}

	if err := s.membershipService.SetSubscriptionState(c.UserContext(), userID, subscriptionID, state); err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "msg": "subscription-updated"})
}

// GetMySubscriptions godoc
// @Summary List the caller's subscriptions with their role
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /subscriptions/user [get]
func (s *Server) GetMySubscriptions(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	subs, err := s.membershipService.ListSubscriptionsForUser(c.UserContext(), userID)
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": subs})
}

// GetSubscriptions godoc
// @Summary List all subscriptions
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /subscriptions [get]
func (s *Server) GetSubscriptions(c *fiber.Ctx) error {
	subs, err := s.membershipService.ListSubscriptions(c.UserContext())
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": subs})
}

// GrantRole godoc
// @Summary Grant or upgrade a role in a variant
// @Tags userVariants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleRequest true "Role grant"
// @Success 200 {object} map[string]interface{}
// @Router /userVariants [post]
func (s *Server) GrantRole(c *fiber.Ctx) error {
	actorID, req, err := s.parseRoleRequest(c)
	if err != nil {
		return respondJSONError(c, err)
	}

	result, err := s.membershipService.GrantOrUpdateRole(c.UserContext(), actorID, req.UserID, req.VariantID, req.Role)
	if err != nil {
		return respondJSONError(c, err)
	}
	if result.Created {
		return c.JSON(fiber.Map{"ok": true, "id": result.Membership.ID, "msg": "user-variant-created"})
	}
	return c.JSON(fiber.Map{"ok": true, "msg": "user-variant-updated"})
}

// UpdateRole godoc
// @Summary Change the role of an existing membership
// @Tags userVariants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body RoleRequest true "Role change"
// @Success 200 {object} map[string]interface{}
// @Router /userVariants [put]
func (s *Server) UpdateRole(c *fiber.Ctx) error {
	actorID, req, err := s.parseRoleRequest(c)
	if err != nil {
		return respondJSONError(c, err)
	}

	if _, err := s.membershipService.UpdateRole(c.UserContext(), actorID, req.UserID, req.VariantID, req.Role); err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "msg": "user-variant-updated"})
}

// GetMyMemberships godoc
// @Summary List the caller's roles
// @Tags userVariants
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /userVariants [get]
func (s *Server) GetMyMemberships(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	memberships, err := s.membershipService.ListForUser(c.UserContext(), userID)
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "data": memberships})
}

func (s *Server) parseRoleRequest(c *fiber.Ctx) (uint, RoleRequest, error) {
	var req RoleRequest
	actorID, ok := currentUserID(c)
	if !ok {
		return 0, req, models.ErrNotAuthenticated
	}
	if err := c.BodyParser(&req); err != nil {
		return 0, req, models.ErrInvalidRole
	}
	if req.UserID == 0 {
		req.UserID = actorID
	}
	return actorID, req, nil
}
