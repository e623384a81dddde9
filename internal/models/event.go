package models

import (
	"strings"
	"time"
)

// EventStatus is the moderation state of an event.
type EventStatus string

const (
	EventStatusPending  EventStatus = "PENDING"
	EventStatusApproved EventStatus = "APPROVED"
	EventStatusRejected EventStatus = "REJECTED"
)

// ParseEventStatus accepts the status names case-insensitively.
func ParseEventStatus(raw string) (EventStatus, bool) {
	switch s := EventStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case EventStatusPending, EventStatusApproved, EventStatusRejected:
		return s, true
	default:
		return "", false
	}
}

// ModerationAction is an admin decision on an event.
type ModerationAction string

const (
	ModerationApprove ModerationAction = "approve"
	ModerationReject  ModerationAction = "reject"
)

var moderationTransitions = map[ModerationAction]map[EventStatus]EventStatus{
	ModerationApprove: {
		EventStatusPending:  EventStatusApproved,
		EventStatusRejected: EventStatusApproved,
	},
	ModerationReject: {
		EventStatusPending: EventStatusRejected,
	},
}

// NextStatus applies a moderation action to a status.
func NextStatus(from EventStatus, action ModerationAction) (EventStatus, error) {
	edges, ok := moderationTransitions[action]
	if !ok {
		return "", NewValidationError("unknown moderation action")
	}
	if to, ok := edges[from]; ok {
		return to, nil
	}
	switch {
	case action == ModerationApprove && from == EventStatusApproved:
		return "", NewConflictError("event is already approved")
	case action == ModerationReject && from == EventStatusRejected:
		return "", NewConflictError("event is already rejected")
	case action == ModerationReject && from == EventStatusApproved:
		return "", NewConflictError("approved events cannot be rejected")
	default:
		return "", NewConflictError("invalid moderation transition")
	}
}

// TransitionSources lists the statuses an action may be applied to.
func TransitionSources(action ModerationAction) []EventStatus {
	edges := moderationTransitions[action]
	out := make([]EventStatus, 0, len(edges))
	for _, s := range []EventStatus{EventStatusPending, EventStatusApproved, EventStatusRejected} {
		if _, ok := edges[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Event is a listing submitted by a user.
type Event struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Title       string      `gorm:"size:200;not null" json:"title"`
	Description string      `gorm:"type:text;not null" json:"description"`
	Location    string      `gorm:"size:255;not null;default:''" json:"location"`
	StartTime   time.Time   `gorm:"not null" json:"startTime"`
	EndTime     *time.Time  `json:"endTime"`
	Image       *string     `json:"image"`
	Status      EventStatus `gorm:"size:16;not null;default:PENDING;index" json:"status"`
	CreatedAt   time.Time   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`

	CategoryID uint      `gorm:"not null;index" json:"categoryId"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	AuthorID   uint      `gorm:"not null;index" json:"authorId"`
	Author     *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Ratings    []Rating  `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE" json:"ratings,omitempty"`

	// Derived on read, never stored.
	AverageRating float64 `gorm:"->;-:migration" json:"averageRating"`
	RatingCount   int64   `gorm:"->;-:migration" json:"ratingCount"`
}

func (e *Event) IsApproved() bool { return e.Status == EventStatusApproved }
func (e *Event) IsRejected() bool { return e.Status == EventStatusRejected }

// ValidateTimes enforces that an end time, when present, is after the start.
func ValidateTimes(start time.Time, end *time.Time) error {
	if start.IsZero() {
		return NewValidationError("startTime is required")
	}
	if end != nil && !end.After(start) {
		return NewValidationError("endTime must be after startTime")
	}
	return nil
}
