package server

import (
	"testing"

	"campus/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		code  string
		json  int
		plain int
	}{
		{models.CodeNotAuthenticated, fiber.StatusUnauthorized, fiber.StatusUnauthorized},
		{models.CodeNotAuthorized, fiber.StatusForbidden, fiber.StatusForbidden},
		{models.CodeValidation, fiber.StatusOK, fiber.StatusBadRequest},
		{models.CodeNotFound, fiber.StatusOK, fiber.StatusNotFound},
		{models.CodeFileMissing, fiber.StatusOK, fiber.StatusGone},
		{models.CodeConflict, fiber.StatusOK, fiber.StatusConflict},
		{models.CodeInvalidCredentials, fiber.StatusOK, fiber.StatusInternalServerError},
		{models.CodeStorageFailure, fiber.StatusInternalServerError, fiber.StatusInternalServerError},
		{models.CodeInternal, fiber.StatusInternalServerError, fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.json, jsonStatus(tt.code))
			assert.Equal(t, tt.plain, plainStatus(tt.code))
		})
	}
}

func TestParseUint(t *testing.T) {
	tests := map[string]uint{
		"7":           7,
		" 12 ":        12,
		"":            0,
		"-3":          0,
		"abc":         0,
		"1.5":         0,
		"99999999999": 0,
	}
	for raw, want := range tests {
		assert.Equal(t, want, parseUint(raw), raw)
	}
}

func TestFiberErrorMsg(t *testing.T) {
	assert.Equal(t, models.MsgFileTooLarge, fiberErrorMsg(fiber.ErrRequestEntityTooLarge))
	assert.Equal(t, "not-found", fiberErrorMsg(fiber.ErrNotFound))
	assert.Equal(t, "upgrade-required", fiberErrorMsg(fiber.ErrUpgradeRequired))
	assert.Equal(t, models.MsgMissingOrInvalidFields, fiberErrorMsg(fiber.ErrBadRequest))
}
