package server

import (
	"log/slog"
	"strconv"
	"strings"

	"campus/internal/middleware"
	"campus/internal/models"

	"github.com/gofiber/fiber/v2"
)

// jsonStatus maps an error code to the status used by JSON endpoints. Client
// errors other than authentication travel as 200 {ok:false,msg}.
func jsonStatus(code string) int {
	switch code {
	case models.CodeNotAuthenticated:
		return fiber.StatusUnauthorized
	case models.CodeNotAuthorized:
		return fiber.StatusForbidden
	case models.CodeStorageFailure, models.CodeInternal:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusOK
	}
}

// plainStatus maps an error code to the status used by the download endpoint.
func plainStatus(code string) int {
	switch code {
	case models.CodeNotAuthenticated:
		return fiber.StatusUnauthorized
	case models.CodeNotAuthorized:
		return fiber.StatusForbidden
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeFileMissing:
		return fiber.StatusGone
	case models.CodeConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// clientMsg hides the cause of server-side failures.
func clientMsg(c *fiber.Ctx, appErr *models.AppError, status int) string {
	if status < fiber.StatusInternalServerError {
		return appErr.Msg
	}
	middleware.Logger.ErrorContext(c.UserContext(), "request failed",
		slog.String("code", appErr.Code),
		slog.String("path", c.Path()),
		slog.Any("error", appErr))
	return models.MsgServerError
}

// respondJSONError writes {ok:false,msg} with the status for err's code.
func respondJSONError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	status := jsonStatus(appErr.Code)
	return c.Status(status).JSON(fiber.Map{
		"ok":  false,
		"msg": clientMsg(c, appErr, status),
	})
}

// respondPlainError writes msg as a text body with the download status for err's code.
func respondPlainError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	status := plainStatus(appErr.Code)
	return c.Status(status).SendString(clientMsg(c, appErr, status))
}

// currentUserID returns the caller set by the auth middleware.
func currentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

// parseUint reads a positive id. Anything else yields 0, which services
// report as a missing field.
func parseUint(raw string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}

func queryUint(c *fiber.Ctx, key string) uint {
	return parseUint(c.Query(key))
}

// queryOrFormUint prefers the query string and falls back to a form field.
func queryOrFormUint(c *fiber.Ctx, key string) uint {
	if v := queryUint(c, key); v != 0 {
		return v
	}
	return parseUint(c.FormValue(key))
}

// fiberErrorMsg names framework-raised client errors in the msg vocabulary.
func fiberErrorMsg(fe *fiber.Error) string {
	switch fe.Code {
	case fiber.StatusRequestEntityTooLarge:
		return models.MsgFileTooLarge
	case fiber.StatusNotFound:
		return "not-found"
	case fiber.StatusMethodNotAllowed:
		return "method-not-allowed"
	case fiber.StatusUpgradeRequired:
		return "upgrade-required"
	default:
		return models.MsgMissingOrInvalidFields
	}
}
