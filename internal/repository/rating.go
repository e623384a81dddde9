package repository

import (
	"context"
	"time"

	"cityevents/internal/models"
	"cityevents/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RatingRepository defines persistence operations for ratings.
type RatingRepository interface {
	// Upsert inserts or replaces the caller's rating for an event and reports
	// whether a new row was created.
	Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, bool, error)
	ListByEvent(ctx context.Context, eventID uint) ([]models.Rating, error)
	Count(ctx context.Context) (int64, error)
}

type ratingRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewRatingRepository returns a new RatingRepository implementation.
func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{
		db:      db,
		log:     observability.NewRepoLogger("ratings"),
		metrics: observability.NewDatabaseMetrics("ratings"),
	}
}

func (r *ratingRepository) Upsert(ctx context.Context, rating *models.Rating) (*models.Rating, bool, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ratings", "Upsert")
	defer r.metrics.TrackQuery("upsert")()

	now := time.Now().UTC()
	row := models.Rating{
		Score:     rating.Score,
		Comment:   rating.Comment,
		EventID:   rating.EventID,
		UserID:    rating.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var stored models.Rating
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Rating{}).
			Where("event_id = ? AND user_id = ?", rating.EventID, rating.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		created = existing == 0

		// ON CONFLICT keeps a concurrent first rating from failing on the unique index.
		err := tx.Omit("User").
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"score":      row.Score,
					"comment":    row.Comment,
					"updated_at": now,
				}),
			}).
			Create(&row).Error
		if err != nil {
			return err
		}

		return tx.Preload("User").
			Where("event_id = ? AND user_id = ?", rating.EventID, rating.UserID).
			First(&stored).Error
	})
	observability.EndSpan(span, err)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, false, models.NewNotFoundError("Event", rating.EventID)
		}
		r.log.LogError(ctx, err, "upsert")
		return nil, false, models.NewInternalError(err)
	}

	if created {
		r.log.LogCreate(ctx, map[string]interface{}{"rating_id": stored.ID, "event_id": stored.EventID})
	} else {
		r.log.LogUpdate(ctx, map[string]interface{}{"rating_id": stored.ID, "event_id": stored.EventID})
	}
	return &stored, created, nil
}

// ListByEvent returns an event's ratings newest first, each with its rater.
// It reads the primary so a rating written in the same request is visible.
func (r *ratingRepository) ListByEvent(ctx context.Context, eventID uint) ([]models.Rating, error) {
	defer r.metrics.TrackQuery("list_by_event")()

	ratings := []models.Rating{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("event_id = ?", eventID).
		Order("created_at DESC, id DESC").
		Find(&ratings).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_event")
		return nil, models.NewInternalError(err)
	}
	return ratings, nil
}

func (r *ratingRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Rating{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
