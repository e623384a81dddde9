package server

import (
	"time"

	"cityevents/internal/middleware"
	"cityevents/internal/models"
	"cityevents/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createEventRequest struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description" validate:"notblank"`
	Location    string     `json:"location" validate:"max=255"`
	StartTime   *time.Time `json:"startTime" validate:"required"`
	EndTime     *time.Time `json:"endTime"`
	Image       *string    `json:"image"`
	CategoryID  uint       `json:"categoryId" validate:"required"`
}

// updateEventRequest is partial: absent fields are left alone and an explicit
// null clears endTime or image.
type updateEventRequest struct {
	Title       *string        `json:"title" validate:"omitempty,max=200"`
	Description *string        `json:"description"`
	Location    *string        `json:"location" validate:"omitempty,max=255"`
	StartTime   *time.Time     `json:"startTime"`
	EndTime     nullableTime   `json:"endTime"`
	Image       nullableString `json:"image"`
	CategoryID  *uint          `json:"categoryId"`
}

type rateEventRequest struct {
	Score   *int    `json:"score" validate:"required"`
	Comment *string `json:"comment"`
}

// GetEvents handles GET /api/events
// @Summary List events
// @Description Events newest first with category, author and rating summary
// @Tags events
// @Produce json
// @Param approved query bool false "true: approved only, false: pending or rejected"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param category query int false "Category ID"
// @Success 200 {array} EventResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /events [get]
func (s *Server) GetEvents(c *fiber.Ctx) error {
	var in service.ListEventsInput

	approved, err := parseOptionalBool(c, "approved")
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	in.Approved = approved

	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseEventStatus(raw)
		if !ok {
			return s.respondWithAppError(c,
				models.NewValidationError("status must be PENDING, APPROVED or REJECTED"))
		}
		in.Status = &status
	}

	categoryID, err := parseOptionalID(c, "category")
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	in.CategoryID = categoryID

	events, err := s.eventService.List(c.UserContext(), in)
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toEventResponses(events))
}

// GetEvent handles GET /api/events/:id
// @Summary Get event
// @Description Event with ratings and rating summary
// @Tags events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} EventDetailResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [get]
func (s *Server) GetEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	event, err := s.eventService.Get(c.UserContext(), id)
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toEventDetailResponse(event))
}

// CreateEvent handles POST /api/events
// @Summary Create event
// @Description Submit an event for moderation. It starts PENDING.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createEventRequest true "Event"
// @Success 201 {object} EventDetailResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /events [post]
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	var req createEventRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	event, err := s.eventService.Create(c.UserContext(), middleware.CurrentIdentity(c), service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   *req.StartTime,
		EndTime:     req.EndTime,
		Image:       req.Image,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toEventDetailResponse(event))
}

// UpdateEvent handles PUT /api/events/:id
// @Summary Update event
// @Description Partial update by the author or an administrator
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body object true "Fields to change"
// @Success 200 {object} EventDetailResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [put]
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updateEventRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	in := service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   req.StartTime,
		CategoryID:  req.CategoryID,
	}
	if req.EndTime.Set {
		in.EndTime = req.EndTime.Value
		in.ClearEndTime = req.EndTime.Value == nil
	}
	if req.Image.Set {
		in.Image = req.Image.Value
		in.ClearImage = req.Image.Value == nil
	}

	event, err := s.eventService.Update(c.UserContext(), middleware.CurrentIdentity(c), id, in)
	if err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(toEventDetailResponse(event))
}

// DeleteEvent handles DELETE /api/events/:id
// @Summary Delete event
// @Description Delete an event and its ratings. Author or administrator only.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id} [delete]
func (s *Server) DeleteEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.eventService.Delete(c.UserContext(), middleware.CurrentIdentity(c), id); err != nil {
		return s.respondWithAppError(c, err)
	}
	return c.JSON(MessageResponse{Message: "Event deleted successfully"})
}

// RateEvent handles POST /api/events/:id/rate
// @Summary Rate event
// @Description Create or replace the caller's rating of an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Event ID"
// @Param request body rateEventRequest true "Rating"
// @Success 200 {object} RatingResponse "Existing rating replaced"
// @Success 201 {object} RatingResponse "Rating created"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /events/{id}/rate [post]
func (s *Server) RateEvent(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req rateEventRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	rating, created, err := s.ratingService.Submit(c.UserContext(), middleware.CurrentIdentity(c), service.SubmitRatingInput{
		EventID: id,
		Score:   *req.Score,
		Comment: req.Comment,
	})
	if err != nil {
		return s.respondWithAppError(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(toRatingResponse(rating))
}
