package service

import (
	"context"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
)

// CategoryService lists destination categories.
type CategoryService struct {
	db         repository.DBTX
	categories repository.CategoryRepository
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(db repository.DBTX, categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{db: db, categories: categories}
}

// List returns all categories sorted by name.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	out, err := s.categories.List(ctx, s.db)
	if err != nil {
		return nil, domain.ErrPersistence("list categories", err)
	}
	return out, nil
}
