package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"cityevents/internal/models"
	"cityevents/internal/repository"
)

const maxCategoryNameLength = 100

type CategoryService struct {
	categories repository.CategoryRepository
}

func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categories.List(ctx)
}

// Create adds a category with the trimmed name. Duplicate names conflict.
func (s *CategoryService) Create(ctx context.Context, caller *models.Identity, name string) (*models.Category, error) {
	if err := requireCapability(caller, models.CapManageCategories); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLength {
		return nil, models.NewValidationError("Category name must not exceed 100 characters")
	}

	existing, err := s.categories.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Category already exists")
	}

	category := &models.Category{Name: name}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, caller *models.Identity, id uint) error {
	if err := requireCapability(caller, models.CapManageCategories); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}
