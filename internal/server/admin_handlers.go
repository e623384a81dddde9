package server

import (
	"cityevents/internal/middleware"
	"cityevents/internal/models"

	"github.com/gofiber/fiber/v2"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

// GetPendingEvents handles GET /api/admin/events/pending
// @Summary Pending events
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} EventResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/events/pending [get]
func (s *Server) GetPendingEvents(c *fiber.Ctx) error {
	events, err := s.eventService.Pending(c.UserContext())
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toEventResponses(events))
}

// ApproveEvent handles POST /api/admin/events/:id/approve
// @Summary Approve event
// @Description PENDING or REJECTED to APPROVED
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} EventDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/events/{id}/approve [post]
func (s *Server) ApproveEvent(c *fiber.Ctx) error {
	return s.moderateEvent(c, models.ModerationApprove)
}

// RejectEvent handles POST /api/admin/events/:id/reject
// @Summary Reject event
// @Description PENDING to REJECTED
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} EventDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/events/{id}/reject [post]
func (s *Server) RejectEvent(c *fiber.Ctx) error {
	return s.moderateEvent(c, models.ModerationReject)
}

func (s *Server) moderateEvent(c *fiber.Ctx, action models.ModerationAction) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	event, err := s.eventService.Moderate(c.UserContext(), middleware.CurrentIdentity(c), id, action)
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toEventDetailResponse(event))
}

// GetUsers handles GET /api/admin/users
// @Summary List users
// @Description Users newest first with their event counts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} AdminUserResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/users [get]
func (s *Server) GetUsers(c *fiber.Ctx) error {
	users, err := s.adminService.ListUsers(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return s.respondWithAppError(c, err)
	}

	out := make([]AdminUserResponse, 0, len(users))
	for i := range users {
		out = append(out, AdminUserResponse{
			UserResponse: toUserResponse(&users[i]),
			EventCount:   users[i].EventCount,
		})
	}
	return c.JSON(out)
}

// ChangeUserRole handles PUT /api/admin/users/:id/role
// @Summary Change role
// @Description Set a user's role to USER or ADMIN. Administrators cannot change their own role.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body changeRoleRequest true "Role"
// @Success 200 {object} UserResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (s *Server) ChangeUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req changeRoleRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.adminService.ChangeRole(c.UserContext(), middleware.CurrentIdentity(c), id, req.Role)
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toUserResponse(user))
}

// GetStats handles GET /api/admin/stats
// @Summary Dashboard statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Stats
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/stats [get]
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.adminService.Stats(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(stats)
}
