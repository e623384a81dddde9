package server

import (
	"cityevents/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type createCategoryRequest struct {
	Name string `json:"name"`
}

// GetCategories handles GET /api/categories
// @Summary List categories
// @Description Categories by name with the number of events in each
// @Tags categories
// @Produce json
// @Success 200 {array} CategoryResponse
// @Router /categories [get]
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.respondWithAppError(c, err)
	}

	out := make([]CategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, toCategoryResponse(&categories[i]))
	}
	return c.JSON(out)
}

// CreateCategory handles POST /api/categories
// @Summary Create category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createCategoryRequest true "Category"
// @Success 201 {object} CategoryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req createCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	category, err := s.categoryService.Create(c.UserContext(), middleware.CurrentIdentity(c), req.Name)
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toCategoryResponse(category))
}

// DeleteCategory handles DELETE /api/categories/:id
// @Summary Delete category
// @Description Fails with 409 while any event uses the category
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "Category ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /categories/{id} [delete]
func (s *Server) DeleteCategory(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.categoryService.Delete(c.UserContext(), middleware.CurrentIdentity(c), id); err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(MessageResponse{Message: "Category deleted successfully"})
}
