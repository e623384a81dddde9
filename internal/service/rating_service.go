package service

import (
	"context"
	"fmt"
	"strings"

	"cityevents/internal/models"
	"cityevents/internal/observability"
	"cityevents/internal/repository"
)

type RatingService struct {
	events  repository.EventRepository
	ratings repository.RatingRepository
}

type SubmitRatingInput struct {
	EventID uint
	Score   int
	Comment *string
}

func NewRatingService(events repository.EventRepository, ratings repository.RatingRepository) *RatingService {
	return &RatingService{events: events, ratings: ratings}
}

// Submit stores the caller's rating for an event, replacing any earlier one.
// created reports whether this was the caller's first rating of the event.
func (s *RatingService) Submit(ctx context.Context, caller *models.Identity, in SubmitRatingInput) (*models.Rating, bool, error) {
	if caller == nil {
		return nil, false, models.NewUnauthorizedError("Authentication required")
	}
	if !models.ValidScore(in.Score) {
		return nil, false, models.NewValidationError(
			fmt.Sprintf("Score must be an integer between %d and %d", models.MinScore, models.MaxScore))
	}
	if _, err := s.events.GetByID(ctx, in.EventID); err != nil {
		return nil, false, err
	}

	comment := in.Comment
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	rating, created, err := s.ratings.Upsert(ctx, &models.Rating{
		EventID: in.EventID,
		UserID:  caller.ID,
		Score:   in.Score,
		Comment: comment,
	})
	if err != nil {
		return nil, false, err
	}

	result := "replaced"
	if created {
		result = "created"
	}
	observability.RatingsSubmitted.WithLabelValues(result).Inc()
	return rating, created, nil
}
