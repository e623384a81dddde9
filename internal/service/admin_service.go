package service

import (
	"context"

	"cityevents/internal/models"
	"cityevents/internal/repository"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers      int64 `json:"totalUsers"`
	TotalEvents     int64 `json:"totalEvents"`
	ApprovedEvents  int64 `json:"approvedEvents"`
	PendingEvents   int64 `json:"pendingEvents"`
	RejectedEvents  int64 `json:"rejectedEvents"`
	TotalCategories int64 `json:"totalCategories"`
	TotalRatings    int64 `json:"totalRatings"`
}

// AdminService provides user management and reporting for administrators.
type AdminService struct {
	users      repository.UserRepository
	events     repository.EventRepository
	categories repository.CategoryRepository
	ratings    repository.RatingRepository
}

func NewAdminService(
	users repository.UserRepository,
	events repository.EventRepository,
	categories repository.CategoryRepository,
	ratings repository.RatingRepository,
) *AdminService {
	return &AdminService{users: users, events: events, categories: categories, ratings: ratings}
}

func (s *AdminService) ListUsers(ctx context.Context, caller *models.Identity) ([]models.User, error) {
	if err := requireCapability(caller, models.CapManageUsers); err != nil {
		return nil, err
	}
	return s.users.ListWithEventCounts(ctx)
}

// ChangeRole sets a user's role. The role is validated first, then the target's
// existence, then that the caller is not changing their own role.
func (s *AdminService) ChangeRole(ctx context.Context, caller *models.Identity, targetID uint, rawRole string) (*models.User, error) {
	if err := requireCapability(caller, models.CapManageUsers); err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(rawRole)
	if !ok {
		return nil, models.NewValidationError("Role must be USER or ADMIN")
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	if targetID == caller.ID {
		return nil, models.NewValidationError("You cannot change your own role")
	}
	return s.users.UpdateRole(ctx, targetID, role)
}

func (s *AdminService) Stats(ctx context.Context, caller *models.Identity) (*Stats, error) {
	if err := requireCapability(caller, models.CapViewStats); err != nil {
		return nil, err
	}

	var stats Stats
	var err error
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalEvents, err = s.events.Count(ctx); err != nil {
		return nil, err
	}
	byStatus, err := s.events.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.ApprovedEvents = byStatus[models.EventStatusApproved]
	stats.PendingEvents = byStatus[models.EventStatusPending]
	stats.RejectedEvents = byStatus[models.EventStatusRejected]
	if stats.TotalCategories, err = s.categories.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalRatings, err = s.ratings.Count(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}
