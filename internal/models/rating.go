package models

import "time"

const (
	MinScore = 1
	MaxScore = 5
)

// Rating is one user's score for one event. (event_id, user_id) is unique.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Score     int       `gorm:"not null" json:"score"`
	Comment   *string   `gorm:"type:text" json:"comment"`
	EventID   uint      `gorm:"not null;uniqueIndex:idx_ratings_event_user" json:"eventId"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_ratings_event_user;index" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidScore reports whether score is within the allowed range.
func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

// RatingAggregate is the derived summary of an event's ratings.
type RatingAggregate struct {
	Average float64 `json:"averageRating"`
	Count   int64   `json:"ratingCount"`
}

// AggregateRatings computes the mean score and count. No ratings yields 0.
func AggregateRatings(ratings []Rating) RatingAggregate {
	if len(ratings) == 0 {
		return RatingAggregate{}
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Score
	}
	return RatingAggregate{
		Average: float64(sum) / float64(len(ratings)),
		Count:   int64(len(ratings)),
	}
}
