package service

import (
	"context"
	"errors"
	"testing"

	"cityevents/internal/models"
	"cityevents/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventRepoStub struct {
	listFn          func(context.Context, repository.EventFilter) ([]models.Event, error)
	getByIDFn       func(context.Context, uint) (*models.Event, error)
	getDetailsFn    func(context.Context, uint) (*models.Event, error)
	createFn        func(context.Context, *models.Event) error
	updateFn        func(context.Context, uint, map[string]interface{}) error
	deleteFn        func(context.Context, uint) error
	transitionFn    func(context.Context, uint, []models.EventStatus, models.EventStatus) (bool, error)
	countByStatusFn func(context.Context) (map[models.EventStatus]int64, error)
	countFn         func(context.Context) (int64, error)
}

func (s *eventRepoStub) List(ctx context.Context, f repository.EventFilter) ([]models.Event, error) {
	return s.listFn(ctx, f)
}
func (s *eventRepoStub) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	return s.getByIDFn(ctx, id)
}
func (s *eventRepoStub) GetWithDetails(ctx context.Context, id uint) (*models.Event, error) {
	return s.getDetailsFn(ctx, id)
}
func (s *eventRepoStub) Create(ctx context.Context, e *models.Event) error {
	return s.createFn(ctx, e)
}
func (s *eventRepoStub) Update(ctx context.Context, id uint, fields map[string]interface{}) error {
	return s.updateFn(ctx, id, fields)
}
func (s *eventRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *eventRepoStub) Transition(ctx context.Context, id uint, from []models.EventStatus, to models.EventStatus) (bool, error) {
	return s.transitionFn(ctx, id, from, to)
}
func (s *eventRepoStub) CountByStatus(ctx context.Context) (map[models.EventStatus]int64, error) {
	return s.countByStatusFn(ctx)
}
func (s *eventRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopEventRepo() *eventRepoStub {
	return &eventRepoStub{
		listFn: func(context.Context, repository.EventFilter) ([]models.Event, error) { return nil, nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Event, error) {
			return &models.Event{ID: id, Status: models.EventStatusPending}, nil
		},
		getDetailsFn: func(_ context.Context, id uint) (*models.Event, error) { return &models.Event{ID: id}, nil },
		createFn:     func(context.Context, *models.Event) error { return nil },
		updateFn:     func(context.Context, uint, map[string]interface{}) error { return nil },
		deleteFn:     func(context.Context, uint) error { return nil },
		transitionFn: func(context.Context, uint, []models.EventStatus, models.EventStatus) (bool, error) {
			return true, nil
		},
		countByStatusFn: func(context.Context) (map[models.EventStatus]int64, error) { return nil, nil },
		countFn:         func(context.Context) (int64, error) { return 0, nil },
	}
}

type categoryRepoStub struct {
	listFn      func(context.Context) ([]models.Category, error)
	getByIDFn   func(context.Context, uint) (*models.Category, error)
	getByNameFn func(context.Context, string) (*models.Category, error)
	existsFn    func(context.Context, uint) (bool, error)
	createFn    func(context.Context, *models.Category) error
	deleteFn    func(context.Context, uint) error
	countFn     func(context.Context) (int64, error)
}

func (s *categoryRepoStub) List(ctx context.Context) ([]models.Category, error) {
	return s.listFn(ctx)
}
func (s *categoryRepoStub) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	return s.getByIDFn(ctx, id)
}
func (s *categoryRepoStub) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return s.getByNameFn(ctx, name)
}
func (s *categoryRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *categoryRepoStub) Create(ctx context.Context, c *models.Category) error {
	return s.createFn(ctx, c)
}
func (s *categoryRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *categoryRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopCategoryRepo() *categoryRepoStub {
	return &categoryRepoStub{
		listFn:      func(context.Context) ([]models.Category, error) { return nil, nil },
		getByIDFn:   func(_ context.Context, id uint) (*models.Category, error) { return &models.Category{ID: id}, nil },
		getByNameFn: func(context.Context, string) (*models.Category, error) { return nil, nil },
		existsFn:    func(context.Context, uint) (bool, error) { return true, nil },
		createFn:    func(context.Context, *models.Category) error { return nil },
		deleteFn:    func(context.Context, uint) error { return nil },
		countFn:     func(context.Context) (int64, error) { return 0, nil },
	}
}

type userRepoStub struct {
	getByIDFn     func(context.Context, uint) (*models.User, error)
	getByEmailFn  func(context.Context, string) (*models.User, error)
	getIdentityFn func(context.Context, uint) (*models.Identity, error)
	createFn      func(context.Context, *models.User) error
	updateRoleFn  func(context.Context, uint, models.Role) (*models.User, error)
	listCountsFn  func(context.Context) ([]models.User, error)
	listByRoleFn  func(context.Context, models.Role) ([]models.User, error)
	countFn       func(context.Context) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetIdentity(ctx context.Context, id uint) (*models.Identity, error) {
	return s.getIdentityFn(ctx, id)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error {
	return s.createFn(ctx, u)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role models.Role) (*models.User, error) {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) ListWithEventCounts(ctx context.Context) ([]models.User, error) {
	return s.listCountsFn(ctx)
}
func (s *userRepoStub) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	return s.listByRoleFn(ctx, role)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:     func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:  func(context.Context, string) (*models.User, error) { return nil, nil },
		getIdentityFn: func(_ context.Context, id uint) (*models.Identity, error) { return &models.Identity{ID: id}, nil },
		createFn:      func(context.Context, *models.User) error { return nil },
		updateRoleFn: func(_ context.Context, id uint, role models.Role) (*models.User, error) {
			return &models.User{ID: id, Role: role}, nil
		},
		listCountsFn: func(context.Context) ([]models.User, error) { return nil, nil },
		listByRoleFn: func(context.Context, models.Role) ([]models.User, error) { return nil, nil },
		countFn:      func(context.Context) (int64, error) { return 0, nil },
	}
}

type ratingRepoStub struct {
	upsertFn      func(context.Context, *models.Rating) (*models.Rating, bool, error)
	listByEventFn func(context.Context, uint) ([]models.Rating, error)
	countFn       func(context.Context) (int64, error)
}

func (s *ratingRepoStub) Upsert(ctx context.Context, r *models.Rating) (*models.Rating, bool, error) {
	return s.upsertFn(ctx, r)
}
func (s *ratingRepoStub) ListByEvent(ctx context.Context, eventID uint) ([]models.Rating, error) {
	return s.listByEventFn(ctx, eventID)
}
func (s *ratingRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopRatingRepo() *ratingRepoStub {
	return &ratingRepoStub{
		upsertFn: func(_ context.Context, r *models.Rating) (*models.Rating, bool, error) {
			return r, true, nil
		},
		listByEventFn: func(context.Context, uint) ([]models.Rating, error) { return nil, nil },
		countFn:       func(context.Context) (int64, error) { return 0, nil },
	}
}

var (
	adminCaller = &models.Identity{ID: 1, Role: models.RoleAdmin, Name: "Admin"}
	userCaller  = &models.Identity{ID: 2, Role: models.RoleUser, Name: "User"}
	otherCaller = &models.Identity{ID: 3, Role: models.RoleUser, Name: "Other"}
)

// assertAppError asserts that err is an AppError carrying code.
func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}
