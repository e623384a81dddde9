package repository

import (
	"context"
	"errors"

	"cityevents/internal/cache"
	"cityevents/internal/models"
	"cityevents/internal/observability"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetIdentity(ctx context.Context, id uint) (*models.Identity, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id uint, role models.Role) (*models.User, error)
	ListWithEventCounts(ctx context.Context) ([]models.User, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
}

type userRepository struct {
	db      *gorm.DB
	log     *observability.RepoLogger
	metrics *observability.DatabaseMetrics
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db:      db,
		log:     observability.NewRepoLogger("users"),
		metrics: observability.NewDatabaseMetrics("users"),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_id")()

	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		r.log.LogError(ctx, err, "get_by_id")
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.metrics.TrackQuery("get_by_email")()

	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.LogError(ctx, err, "get_by_email")
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetIdentity resolves the request identity for a user id, reading through the
// identity cache. Role changes invalidate the entry.
func (r *userRepository) GetIdentity(ctx context.Context, id uint) (*models.Identity, error) {
	var identity models.Identity
	err := cache.Aside(ctx, "identity", cache.IdentityKey(id), &identity, cache.IdentityTTL, func() error {
		user, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		identity = *user.Identity()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	defer r.metrics.TrackQuery("create")()

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email is already registered")
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"user_id": user.ID})
	return nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	defer r.metrics.TrackQuery("update_role")()

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "update_role")
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("User", id)
	}
	cache.InvalidateIdentity(ctx, id)
	r.log.LogUpdate(ctx, map[string]interface{}{"user_id": id, "role": role})

	return r.GetByID(ctx, id)
}

// ListWithEventCounts returns all users newest first, each with the number of events they authored.
func (r *userRepository) ListWithEventCounts(ctx context.Context) ([]models.User, error) {
	defer r.metrics.TrackQuery("list_with_event_counts")()

	var users []models.User
	err := readDB(r.db).WithContext(ctx).
		Model(&models.User{}).
		Select("users.*, (SELECT COUNT(*) FROM events e WHERE e.author_id = users.id) AS event_count").
		Order("users.created_at DESC, users.id DESC").
		Find(&users).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_with_event_counts")
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Where("role = ?", role).Order("id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.User{}).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
