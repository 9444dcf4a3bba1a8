package repository

import (
	"context"
	"fmt"

	"github.com/destinos/platform/internal/domain"
)

type categoryRepo struct{}

// NewCategoryRepository returns a pgx-backed CategoryRepository.
func NewCategoryRepository() CategoryRepository {
	return &categoryRepo{}
}

func (r *categoryRepo) List(ctx context.Context, db DBTX) ([]domain.Category, error) {
	rows, err := db.Query(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
