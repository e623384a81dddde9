package server

import (
	"time"

	"cityevents/internal/models"
)

// UserSummary is the author view embedded in events.
type UserSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RatingUser is the rater view embedded in ratings.
type RatingUser struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type UserResponse struct {
	ID        uint        `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

// AdminUserResponse adds the number of events the user authored.
type AdminUserResponse struct {
	UserResponse
	EventCount int64 `json:"eventCount"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

type CategoryRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type CategoryResponse struct {
	ID         uint      `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	EventCount int64     `json:"eventCount"`
}

type RatingResponse struct {
	ID        uint        `json:"id"`
	Score     int         `json:"score"`
	Comment   *string     `json:"comment"`
	EventID   uint        `json:"eventId"`
	UserID    uint        `json:"userId"`
	User      *RatingUser `json:"user,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// EventResponse is the list view of an event. Approved and Rejected mirror
// Status for clients that read the two flags.
type EventResponse struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Location      string             `json:"location"`
	StartTime     time.Time          `json:"startTime"`
	EndTime       *time.Time         `json:"endTime"`
	Image         *string            `json:"image"`
	Status        models.EventStatus `json:"status"`
	Approved      bool               `json:"approved"`
	Rejected      bool               `json:"rejected"`
	CategoryID    uint               `json:"categoryId"`
	Category      *CategoryRef       `json:"category,omitempty"`
	AuthorID      uint               `json:"authorId"`
	Author        *UserSummary       `json:"author,omitempty"`
	AverageRating float64            `json:"averageRating"`
	RatingCount   int64              `json:"ratingCount"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}

// EventDetailResponse is the single-event view with its ratings.
type EventDetailResponse struct {
	EventResponse
	Ratings []RatingResponse `json:"ratings"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func toCategoryResponse(c *models.Category) CategoryResponse {
	return CategoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt, EventCount: c.EventCount}
}

func toRatingResponse(r *models.Rating) RatingResponse {
	out := RatingResponse{
		ID:        r.ID,
		Score:     r.Score,
		Comment:   r.Comment,
		EventID:   r.EventID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.User != nil {
		out.User = &RatingUser{ID: r.User.ID, Name: r.User.Name}
	}
	return out
}

func toEventResponse(e *models.Event) EventResponse {
	out := EventResponse{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Location:      e.Location,
		StartTime:     e.StartTime,
		EndTime:       e.EndTime,
		Image:         e.Image,
		Status:        e.Status,
		Approved:      e.IsApproved(),
		Rejected:      e.IsRejected(),
		CategoryID:    e.CategoryID,
		AuthorID:      e.AuthorID,
		AverageRating: e.AverageRating,
		RatingCount:   e.RatingCount,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.Category != nil {
		out.Category = &CategoryRef{ID: e.Category.ID, Name: e.Category.Name}
	}
	if e.Author != nil {
		out.Author = &UserSummary{ID: e.Author.ID, Name: e.Author.Name, Email: e.Author.Email}
	}
	return out
}

func toEventResponses(events []models.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, toEventResponse(&events[i]))
	}
	return out
}

func toEventDetailResponse(e *models.Event) EventDetailResponse {
	ratings := make([]RatingResponse, 0, len(e.Ratings))
	for i := range e.Ratings {
		ratings = append(ratings, toRatingResponse(&e.Ratings[i]))
	}
	return EventDetailResponse{EventResponse: toEventResponse(e), Ratings: ratings}
}
