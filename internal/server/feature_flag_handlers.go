package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags lists the configured flags and how they evaluate for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := currentUserID(c)
	return c.JSON(fiber.Map{
		"ok":        true,
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
