package repository

import (
	"context"
	"errors"
	"time"

	"cityevents/internal/cache"
	"cityevents/internal/models"
	"cityevents/internal/observability"

	"gorm.io/gorm"
)

const ratingAggregateSelect = "events.*, " +
	"CAST(COALESCE((SELECT AVG(r.score) FROM ratings r WHERE r.event_id = events.id), 0) AS DOUBLE PRECISION) AS average_rating, " +
	"(SELECT COUNT(*) FROM ratings r WHERE r.event_id = events.id) AS rating_count"

// EventFilter narrows an event listing. Empty fields do not filter.
type EventFilter struct {
	Statuses   []models.EventStatus
	CategoryID *uint
	AuthorID   *uint
}

// EventRepository defines persistence operations for events.
type EventRepository interface {
	List(ctx context.Context, filter EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	GetWithDetails(ctx context.Context, id uint) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	Transition(ctx context.Context, id uint, from []models.EventStatus, to models.EventStatus) (bool, error)
	CountByStatus(ctx context.Context) (map[models.EventStatus]int64, error)
	Count(ctx context.Context) (int64, error)
}

type eventRepository struct {
	db      *gorm.DB
	ratings RatingRepository
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewEventRepository returns a new EventRepository implementation.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{
		db:      db,
		ratings: NewRatingRepository(db),
		log:     observability.NewRepoLogger("events"),
		metrics: observability.NewDatabaseMetrics("events"),
	}
}

// List returns events newest first with category, author and rating aggregates.
func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "events", "List")
	defer r.metrics.TrackQuery("list")()

	q := readDB(r.db).WithContext(ctx).
		Model(&models.Event{}).
		Select(ratingAggregateSelect).
		Preload("Category").
		Preload("Author")

	if len(filter.Statuses) > 0 {
		q = q.Where("events.status IN ?", filter.Statuses)
	}
	if filter.CategoryID != nil {
		q = q.Where("events.category_id = ?", *filter.CategoryID)
	}
	if filter.AuthorID != nil {
		q = q.Where("events.author_id = ?", *filter.AuthorID)
	}

	events := []models.Event{}
	err := q.Order("events.created_at DESC, events.id DESC").Find(&events).Error
	observability.EndSpan(span, err)
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, models.NewInternalError(err)
	}
	return events, nil
}

// GetByID loads the bare event row, without relations.
func (r *eventRepository) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	defer r.metrics.TrackQuery("get_by_id")()

	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Event", id)
		}
		r.log.LogError(ctx, err, "get_by_id")
		return nil, models.NewInternalError(err)
	}
	return &event, nil
}

// GetWithDetails loads an event with category, author and every rating with its rater.
func (r *eventRepository) GetWithDetails(ctx context.Context, id uint) (*models.Event, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "events", "GetWithDetails")
	defer r.metrics.TrackQuery("get_with_details")()

	var event models.Event
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Author").
		First(&event, id).Error
	if err != nil {
		observability.EndSpan(span, err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Event", id)
		}
		r.log.LogError(ctx, err, "get_with_details")
		return nil, models.NewInternalError(err)
	}

	event.Ratings, err = r.ratings.ListByEvent(ctx, id)
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	agg := models.AggregateRatings(event.Ratings)
	event.AverageRating = agg.Average
	event.RatingCount = agg.Count
	return &event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Omit("Category", "Author", "Ratings").Create(event).Error; err != nil {
		if isForeignKeyError(err) {
			return models.NewValidationError("Category does not exist")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	r.log.LogCreate(ctx, map[string]interface{}{"event_id": event.ID, "author_id": event.AuthorID})
	return nil
}

// Update writes the given columns. Keys are column names.
func (r *eventRepository) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	defer r.metrics.TrackQuery("update")()

	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isForeignKeyError(res.Error) {
			return models.NewValidationError("Category does not exist")
		}
		r.log.LogError(ctx, res.Error, "update")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Event", id)
	}
	if _, ok := fields["category_id"]; ok {
		cache.InvalidateCategories(ctx)
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"event_id": id})
	return nil
}

// Delete removes an event and its ratings in one transaction.
func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Event", id)
		}
		return nil
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	r.log.LogDelete(ctx, map[string]interface{}{"event_id": id})
	return nil
}

// Transition moves an event to status `to` only if it is currently in one of `from`.
// It reports false when the event was not in a source status at write time.
func (r *eventRepository) Transition(ctx context.Context, id uint, from []models.EventStatus, to models.EventStatus) (bool, error) {
	defer r.metrics.TrackQuery("transition")()

	res := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "transition")
		return false, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"event_id": id, "status": to})
	return true, nil
}

type statusCount struct {
	Status models.EventStatus
	Count  int64
}

func (r *eventRepository) CountByStatus(ctx context.Context) (map[models.EventStatus]int64, error) {
	defer r.metrics.TrackQuery("count_by_status")()

	var rows []statusCount
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Event{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		r.log.LogError(ctx, err, "count_by_status")
		return nil, models.NewInternalError(err)
	}

	counts := map[models.EventStatus]int64{
		models.EventStatusPending:  0,
		models.EventStatusApproved: 0,
		models.EventStatusRejected: 0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *eventRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Event{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
