package service

import (
	"context"
	"testing"

	"cityevents/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminService_ChangeRole(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	missingUsers := func() *userRepoStub {
		users := noopUserRepo()
		users.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		}
		return users
	}

	t.Run("role is checked before existence", func(t *testing.T) {
		svc := NewAdminService(missingUsers(), noopEventRepo(), noopCategoryRepo(), noopRatingRepo())
		_, err := svc.ChangeRole(ctx, adminCaller, 99, "SUPERUSER")
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("lower-case role is invalid", func(t *testing.T) {
		svc := NewAdminService(noopUserRepo(), noopEventRepo(), noopCategoryRepo(), noopRatingRepo())
		_, err := svc.ChangeRole(ctx, adminCaller, 5, "admin")
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("existence is checked before self change", func(t *testing.T) {
		svc := NewAdminService(missingUsers(), noopEventRepo(), noopCategoryRepo(), noopRatingRepo())
		_, err := svc.ChangeRole(ctx, adminCaller, adminCaller.ID, "USER")
		assertAppError(t, err, models.CodeNotFound)
	})

	t.Run("self change forbidden", func(t *testing.T) {
		users := noopUserRepo()
		users.updateRoleFn = func(context.Context, uint, models.Role) (*models.User, error) {
			t.Fatal("role must not be updated")
			return nil, nil
		}
		svc := NewAdminService(users, noopEventRepo(), noopCategoryRepo(), noopRatingRepo())
		_, err := svc.ChangeRole(ctx, adminCaller, adminCaller.ID, "USER")
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("requires manage_users", func(t *testing.T) {
		svc := NewAdminService(noopUserRepo(), noopEventRepo(), noopCategoryRepo(), noopRatingRepo())
		_, err := svc.ChangeRole(ctx, userCaller, 5, "ADMIN")
		assertAppError(t, err, models.CodeForbidden)
	})

	t.Run("success", func(t *testing.T) {
		svc := NewAdminService(noopUserRepo(), noopEventRepo(), noopCategoryRepo(), noopRatingRepo())
		user, err := svc.ChangeRole(ctx, adminCaller, 5, "ADMIN")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, user.Role)
		assert.Equal(t, uint(5), user.ID)
	})
}

func TestAdminService_Stats(t *testing.T) {
	t.Parallel()
	users := noopUserRepo()
	users.countFn = func(context.Context) (int64, error) { return 12, nil }
	events := noopEventRepo()
	events.countFn = func(context.Context) (int64, error) { return 9, nil }
	events.countByStatusFn = func(context.Context) (map[models.EventStatus]int64, error) {
		return map[models.EventStatus]int64{
			models.EventStatusApproved: 5,
			models.EventStatusPending:  3,
			models.EventStatusRejected: 1,
		}, nil
	}
	cats := noopCategoryRepo()
	cats.countFn = func(context.Context) (int64, error) { return 4, nil }
	ratings := noopRatingRepo()
	ratings.countFn = func(context.Context) (int64, error) { return 20, nil }

	svc := NewAdminService(users, events, cats, ratings)
	stats, err := svc.Stats(context.Background(), adminCaller)
	require.NoError(t, err)
	assert.Equal(t, Stats{
		TotalUsers:      12,
		TotalEvents:     9,
		ApprovedEvents:  5,
		PendingEvents:   3,
		RejectedEvents:  1,
		TotalCategories: 4,
		TotalRatings:    20,
	}, *stats)

	_, err = svc.Stats(context.Background(), userCaller)
	assertAppError(t, err, models.CodeForbidden)
}

func TestCategoryService(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("trims and creates", func(t *testing.T) {
		repo := noopCategoryRepo()
		var saved *models.Category
		repo.createFn = func(_ context.Context, c *models.Category) error {
			saved = c
			return nil
		}
		svc := NewCategoryService(repo)
		cat, err := svc.Create(ctx, adminCaller, "  Teatras ")
		require.NoError(t, err)
		assert.Equal(t, "Teatras", cat.Name)
		assert.Same(t, saved, cat)
	})

	t.Run("blank name", func(t *testing.T) {
		svc := NewCategoryService(noopCategoryRepo())
		_, err := svc.Create(ctx, adminCaller, "   ")
		assertAppError(t, err, models.CodeValidation)
	})

	t.Run("duplicate name", func(t *testing.T) {
		repo := noopCategoryRepo()
		repo.getByNameFn = func(_ context.Context, name string) (*models.Category, error) {
			return &models.Category{ID: 1, Name: name}, nil
		}
		svc := NewCategoryService(repo)
		_, err := svc.Create(ctx, adminCaller, "Menas")
		assertAppError(t, err, models.CodeConflict)
	})

	t.Run("users cannot manage categories", func(t *testing.T) {
		svc := NewCategoryService(noopCategoryRepo())
		_, err := svc.Create(ctx, userCaller, "Menas")
		assertAppError(t, err, models.CodeForbidden)
		assertAppError(t, svc.Delete(ctx, userCaller, 1), models.CodeForbidden)
	})
}
