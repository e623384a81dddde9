package repository

import (
	"context"
	"errors"

	"cityevents/internal/cache"
	"cityevents/internal/models"
	"cityevents/internal/observability"

	"gorm.io/gorm"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	GetByName(ctx context.Context, name string) (*models.Category, error)
	Exists(ctx context.Context, id uint) (bool, error)
	Create(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type categoryRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewCategoryRepository returns a new CategoryRepository implementation.
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{
		db:      db,
		log:     observability.NewRepoLogger("categories"),
		metrics: observability.NewDatabaseMetrics("categories"),
	}
}

// List returns all categories ordered by name with their event counts.
func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := cache.Aside(ctx, "categories", cache.CategoryListKey, &categories, cache.CategoryListTTL, func() error {
		defer r.metrics.TrackQuery("list")()
		return readDB(r.db).WithContext(ctx).
			Model(&models.Category{}).
			Select("categories.*, (SELECT COUNT(*) FROM events e WHERE e.category_id = categories.id) AS event_count").
			Order("categories.name ASC").
			Find(&categories).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Category", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

// GetByName returns nil, nil when no category has the name.
func (r *categoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &category, nil
}

func (r *categoryRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *categoryRepository) Create(ctx context.Context, category *models.Category) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Category already exists")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	cache.InvalidateCategories(ctx)
	r.log.LogCreate(ctx, map[string]interface{}{"category_id": category.ID, "name": category.Name})
	return nil
}

// Delete removes a category that no event references.
func (r *categoryRepository) Delete(ctx context.Context, id uint) error {
	defer r.metrics.TrackQuery("delete")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Select("id").First(&category, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Category", id)
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.Event{}).Where("category_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return models.NewConflictError("Category is used by existing events and cannot be deleted")
		}

		return tx.Delete(&models.Category{}, id).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		if isForeignKeyError(err) {
			return models.NewConflictError("Category is used by existing events and cannot be deleted")
		}
		r.log.LogError(ctx, err, "delete")
		return models.NewInternalError(err)
	}

	cache.InvalidateCategories(ctx)
	r.log.LogDelete(ctx, map[string]interface{}{"category_id": id})
	return nil
}

func (r *categoryRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.Category{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
