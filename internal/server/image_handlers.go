package server

import (
	"io"

	"cityevents/internal/middleware"
	"cityevents/internal/models"
	"cityevents/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadEventImage handles POST /api/events/:id/image
// @Summary Upload event image
// @Description Multipart field "image". Stored as WebP scaled to fit 1600x1600.
// @Tags events
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param image formData file true "Image"
// @Success 200 {object} EventDetailResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id}/image [post]
func (s *Server) UploadEventImage(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	file, err := c.FormFile("image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.imageService.MaxUploadBytes() {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("File too large"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	event, err := s.imageService.Upload(c.UserContext(), middleware.CurrentIdentity(c), service.UploadImageInput{
		EventID:     id,
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toEventDetailResponse(event))
}
