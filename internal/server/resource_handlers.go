package server

import (
	"fmt"
	"mime/multipart"
	"strings"

	"campus/internal/models"
	"campus/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateResource godoc
// @Summary Upload a PDF resource to a variant
// @Description Requires admin of the variant. idVariante may be sent as query or form field.
// @Tags resources
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param idVariante query int false "Variant ID"
// @Param tipo formData string true "Type"
// @Param titulo formData string true "Title"
// @Param descripcion formData string true "Description"
// @Param file formData file true "PDF payload"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /resources [post]
func (s *Server) CreateResource(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	in := service.UploadInput{
		VariantID:   queryOrFormUint(c, "idVariante"),
		Type:        c.FormValue("tipo"),
		Title:       c.FormValue("titulo"),
		Description: c.FormValue("descripcion"),
	}

	if header, err := c.FormFile("file"); err == nil && header != nil {
		file, err := header.Open()
		if err != nil {
			return respondJSONError(c, models.NewInternalError(fmt.Errorf("open upload: %w", err)))
		}
		defer closeUpload(file)
		in.File = file
		in.FileName = header.Filename
		in.Size = header.Size
	}

	resource, err := s.resourceService.CreateResource(c.UserContext(), userID, in)
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "id": resource.ID})
}

func closeUpload(f multipart.File) {
	_ = f.Close()
}

// GetResourcesByUser godoc
// @Summary List resources created by the caller
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param userId query int false "Creator ID, must be the caller"
// @Success 200 {object} map[string]interface{}
// @Router /resources/byUser [get]
func (s *Server) GetResourcesByUser(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	var queried uint
	if raw := strings.TrimSpace(c.Query("userId")); raw != "" {
		queried = parseUint(raw)
		if queried == 0 {
			return respondJSONError(c, models.ErrNotAuthorized)
		}
	}

	resources, err := s.resourceService.ListByCreator(c.UserContext(), userID, queried)
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "resources": resources})
}

// GetResourcesByVariant godoc
// @Summary List a variant's resources
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param idVariante query int true "Variant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /resources/byVariant [get]
func (s *Server) GetResourcesByVariant(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	resources, err := s.resourceService.ListByVariant(c.UserContext(), userID, queryUint(c, "idVariante"))
	if err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "resources": resources})
}

// DeleteResource godoc
// @Summary Delete a resource and its payload
// @Tags resources
// @Produce json
// @Security BearerAuth
// @Param idRecurso query int true "Resource ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /resources [delete]
func (s *Server) DeleteResource(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondJSONError(c, models.ErrNotAuthenticated)
	}

	if err := s.resourceService.DeleteResource(c.UserContext(), userID, queryUint(c, "idRecurso")); err != nil {
		return respondJSONError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "msg": "resource-deleted"})
}

// DownloadResource godoc
// @Summary Stream a resource's PDF
// @Description Errors are plain text: 400 missing-fields, 401, 403, 404 resource-not-found, 410 file-missing.
// @Tags resources
// @Produce application/pdf
// @Security BearerAuth
// @Param idRecurso query int true "Resource ID"
// @Success 200 {file} binary
// @Router /resources/download [get]
func (s *Server) DownloadResource(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return respondPlainError(c, models.ErrNotAuthenticated)
	}

	dl, err := s.resourceService.DownloadResource(c.UserContext(), userID, queryUint(c, "idRecurso"))
	if err != nil {
		return respondPlainError(c, err)
	}

	c.Set(fiber.HeaderContentType, dl.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", dl.Name))
	// fasthttp closes the stream once the body has been written.
	return c.SendStream(dl.Body, int(dl.Size))
}
