package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"cityevents/internal/models"
	"cityevents/internal/observability"
	"cityevents/internal/repository"
)

const maxTitleLength = 200

type EventService struct {
	events     repository.EventRepository
	categories repository.CategoryRepository
}

// ListEventsInput holds the optional listing filters. Approved and Status
// both narrow the result when set.
type ListEventsInput struct {
	Approved   *bool
	Status     *models.EventStatus
	CategoryID *uint
}

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     *time.Time
	Image       *string
	CategoryID  uint
}

// UpdateEventInput is a partial update; nil fields are left unchanged.
// ClearEndTime and ClearImage set the column to NULL.
type UpdateEventInput struct {
	Title        *string
	Description  *string
	Location     *string
	StartTime    *time.Time
	EndTime      *time.Time
	ClearEndTime bool
	Image        *string
	ClearImage   bool
	CategoryID   *uint
}

func NewEventService(events repository.EventRepository, categories repository.CategoryRepository) *EventService {
	return &EventService{events: events, categories: categories}
}

func (s *EventService) List(ctx context.Context, in ListEventsInput) ([]models.Event, error) {
	statuses, empty := statusFilter(in)
	if empty {
		return []models.Event{}, nil
	}
	return s.events.List(ctx, repository.EventFilter{Statuses: statuses, CategoryID: in.CategoryID})
}

// statusFilter turns the approved flag and explicit status into one status set.
// empty is true when the two constraints cannot both hold.
func statusFilter(in ListEventsInput) (statuses []models.EventStatus, empty bool) {
	if in.Approved != nil {
		if *in.Approved {
			statuses = []models.EventStatus{models.EventStatusApproved}
		} else {
			statuses = []models.EventStatus{models.EventStatusPending, models.EventStatusRejected}
		}
	}
	if in.Status == nil {
		return statuses, false
	}
	if statuses == nil {
		return []models.EventStatus{*in.Status}, false
	}
	for _, st := range statuses {
		if st == *in.Status {
			return []models.EventStatus{st}, false
		}
	}
	return nil, true
}

func (s *EventService) Pending(ctx context.Context) ([]models.Event, error) {
	return s.events.List(ctx, repository.EventFilter{Statuses: []models.EventStatus{models.EventStatusPending}})
}

func (s *EventService) Get(ctx context.Context, id uint) (*models.Event, error) {
	return s.events.GetWithDetails(ctx, id)
}

func (s *EventService) Create(ctx context.Context, caller *models.Identity, in CreateEventInput) (*models.Event, error) {
	if caller == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" || in.CategoryID == 0 {
		return nil, models.NewValidationError("Title, description, startTime and categoryId are required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, models.NewValidationError("Title must not exceed 200 characters")
	}
	if err := models.ValidateTimes(in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	if err := s.ensureCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	event := &models.Event{
		Title:       title,
		Description: description,
		Location:    strings.TrimSpace(in.Location),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Image:       in.Image,
		Status:      models.EventStatusPending,
		CategoryID:  in.CategoryID,
		AuthorID:    caller.ID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	return s.events.GetWithDetails(ctx, event.ID)
}

func (s *EventService) Update(ctx context.Context, caller *models.Identity, id uint, in UpdateEventInput) (*models.Event, error) {
	event, err := s.authorizeOwner(ctx, caller, id, "You can only update your own events")
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationError("Title cannot be empty")
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return nil, models.NewValidationError("Title must not exceed 200 characters")
		}
		fields["title"] = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if description == "" {
			return nil, models.NewValidationError("Description cannot be empty")
		}
		fields["description"] = description
	}
	if in.Location != nil {
		fields["location"] = strings.TrimSpace(*in.Location)
	}

	start := event.StartTime
	if in.StartTime != nil {
		start = *in.StartTime
		fields["start_time"] = start
	}
	end := event.EndTime
	switch {
	case in.ClearEndTime:
		end = nil
		fields["end_time"] = nil
	case in.EndTime != nil:
		end = in.EndTime
		fields["end_time"] = *end
	}
	if in.StartTime != nil || in.EndTime != nil {
		if err := models.ValidateTimes(start, end); err != nil {
			return nil, err
		}
	}

	switch {
	case in.ClearImage:
		fields["image"] = nil
	case in.Image != nil:
		fields["image"] = *in.Image
	}

	if in.CategoryID != nil {
		if err := s.ensureCategory(ctx, *in.CategoryID); err != nil {
			return nil, err
		}
		fields["category_id"] = *in.CategoryID
	}

	if err := s.events.Update(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.events.GetWithDetails(ctx, id)
}

func (s *EventService) Delete(ctx context.Context, caller *models.Identity, id uint) error {
	if _, err := s.authorizeOwner(ctx, caller, id, "You can only delete your own events"); err != nil {
		return err
	}
	return s.events.Delete(ctx, id)
}

// SetImage records the public URL of an uploaded image on the event.
func (s *EventService) SetImage(ctx context.Context, id uint, url string) (*models.Event, error) {
	if err := s.events.Update(ctx, id, map[string]interface{}{"image": url}); err != nil {
		return nil, err
	}
	return s.events.GetWithDetails(ctx, id)
}

// Moderate applies a moderation action. The write is conditional on the status
// still being a valid source, so a concurrent decision yields a conflict.
func (s *EventService) Moderate(ctx context.Context, caller *models.Identity, id uint, action models.ModerationAction) (*models.Event, error) {
	ctx, span := observability.StartServiceSpan(ctx, "EventService", "Moderate")
	event, err := s.moderate(ctx, caller, id, action)
	observability.EndSpan(span, err)
	return event, err
}

func (s *EventService) moderate(ctx context.Context, caller *models.Identity, id uint, action models.ModerationAction) (*models.Event, error) {
	if err := requireCapability(caller, models.CapModerate); err != nil {
		return nil, err
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	to, err := models.NextStatus(event.Status, action)
	if err != nil {
		return nil, err
	}

	applied, err := s.events.Transition(ctx, id, models.TransitionSources(action), to)
	if err != nil {
		return nil, err
	}
	if !applied {
		current, err := s.events.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := models.NextStatus(current.Status, action); err != nil {
			return nil, err
		}
		return nil, models.NewConflictError("Event status changed concurrently")
	}

	observability.EventsModerated.WithLabelValues(string(action)).Inc()
	return s.events.GetWithDetails(ctx, id)
}

func (s *EventService) authorizeOwner(ctx context.Context, caller *models.Identity, id uint, denied string) (*models.Event, error) {
	if caller == nil {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanModifyEvent(caller, event) {
		return nil, models.NewForbiddenError(denied)
	}
	return event, nil
}

// Authorize loads the event and checks the caller may modify it.
func (s *EventService) Authorize(ctx context.Context, caller *models.Identity, id uint) (*models.Event, error) {
	return s.authorizeOwner(ctx, caller, id, "You can only modify your own events")
}

func (s *EventService) ensureCategory(ctx context.Context, id uint) error {
	ok, err := s.categories.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewValidationError("Category does not exist")
	}
	return nil
}
