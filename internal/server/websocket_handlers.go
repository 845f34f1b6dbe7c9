package server

import (
	"log/slog"

	"campus/internal/middleware"
	"campus/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// VariantEventsUpgrade authorizes a websocket upgrade for ?idVariante= with the
// same rule as listing the variant's resources.
func (s *Server) VariantEventsUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if s.hub == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"ok":  false,
			"msg": "realtime-unavailable",
		})
	}

	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}
	variantID := queryUint(c, "idVariante")
	if variantID == 0 {
		return respondJSONError(c, models.ErrMissingFields)
	}
	if _, err := s.catalogService.Variant(c.UserContext(), variantID); err != nil {
		return respondJSONError(c, err)
	}

	allowed, err := s.membershipService.HasAccess(c.UserContext(), userID, variantID)
	if err != nil {
		return respondJSONError(c, err)
	}
	if !allowed {
		return respondJSONError(c, models.ErrNotAuthorized)
	}

	c.Locals("variantID", variantID)
	return c.Next()
}

// VariantEventsHandler streams resource.created and resource.deleted events of one variant.
func (s *Server) VariantEventsHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		variantID, _ := conn.Locals("variantID").(uint)

		client, err := s.hub.Register(variantID, userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket registration rejected",
				slog.Uint64("user_id", uint64(userID)),
				slog.Uint64("variant_id", uint64(variantID)),
				slog.Any("error", err))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","payload":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		middleware.Logger.Info("websocket connected",
			slog.Uint64("user_id", uint64(userID)),
			slog.Uint64("variant_id", uint64(variantID)))

		go client.WritePump()
		client.ReadPump()
	})
}
