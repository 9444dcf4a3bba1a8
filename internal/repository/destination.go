package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type destinationRepo struct{}

// NewDestinationRepository returns a pgx-backed DestinationRepository.
func NewDestinationRepository() DestinationRepository {
	return &destinationRepo{}
}

const destinationSelect = `
	SELECT d.id, d.slug, d.name, d.description, d.province, d.images, d.status,
	       d.created_by, d.is_public, d.created_at, d.updated_at,
	       COALESCE((
	         SELECT array_agg(c.name ORDER BY c.name)
	         FROM destination_categories dc JOIN categories c ON c.id = dc.category_id
	         WHERE dc.destination_id = d.id
	       ), '{}') AS categories
	FROM destinations d`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDestination(row scanner) (*domain.Destination, error) {
	d := &domain.Destination{}
	err := row.Scan(&d.ID, &d.Slug, &d.Name, &d.Description, &d.Province, &d.Images, &d.Status,
		&d.CreatedBy, &d.IsPublic, &d.CreatedAt, &d.UpdatedAt, &d.Categories)
	if err != nil {
		return nil, err
	}
	if d.Images == nil {
		d.Images = []string{}
	}
	return d, nil
}

func (r *destinationRepo) one(ctx context.Context, db DBTX, where string, arg interface{}) (*domain.Destination, error) {
	d, err := scanDestination(db.QueryRow(ctx, destinationSelect+` WHERE `+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find destination: %w", err)
	}
	return d, nil
}

func (r *destinationRepo) many(ctx context.Context, db DBTX, query string, args ...interface{}) ([]domain.Destination, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	defer rows.Close()

	out := []domain.Destination{}
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan destination: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (r *destinationRepo) Create(ctx context.Context, db DBTX, d *domain.Destination) error {
	if d.Images == nil {
		d.Images = []string{}
	}
	err := db.QueryRow(ctx, `
		INSERT INTO destinations (id, slug, name, description, province, search_key, images, status, created_by, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		d.ID, d.Slug, d.Name, d.Description, d.Province, destinationSearchKey(d.Name, d.Province),
		d.Images, string(d.Status), d.CreatedBy, d.IsPublic,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert destination: %w", err)
	}
	return nil
}

func (r *destinationRepo) SlugExists(ctx context.Context, db DBTX, slug string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM destinations WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

func (r *destinationRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Destination, error) {
	return r.one(ctx, db, `d.id = $1`, id)
}

func (r *destinationRepo) FindBySlug(ctx context.Context, db DBTX, slug string) (*domain.Destination, error) {
	return r.one(ctx, db, `d.slug = $1`, slug)
}

func (r *destinationRepo) List(ctx context.Context, db DBTX, status *domain.DestinationStatus, limit int) ([]domain.Destination, error) {
	query := destinationSelect
	args := []interface{}{}
	if status != nil {
		args = append(args, string(*status))
		query += fmt.Sprintf(` WHERE d.status = $%d`, len(args))
	}
	query += ` ORDER BY d.created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return r.many(ctx, db, query, args...)
}

func (r *destinationRepo) ListByCreator(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.Destination, error) {
	return r.many(ctx, db, destinationSelect+` WHERE d.created_by = $1 ORDER BY d.created_at DESC`, userID)
}

func (r *destinationRepo) Search(ctx context.Context, db DBTX, key string) ([]domain.Destination, error) {
	return r.many(ctx, db, destinationSelect+`
		WHERE d.status = 'active' AND d.search_key LIKE '%' || $1 || '%'
		ORDER BY d.name ASC`, key)
}

func (r *destinationRepo) Update(ctx context.Context, db DBTX, id uuid.UUID, in domain.DestinationInput) (*domain.Destination, error) {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	tag, err := db.Exec(ctx, `
		UPDATE destinations
		SET name = $2, description = $3, province = $4, search_key = $5, images = $6,
		    is_public = $7, updated_at = now()
		WHERE id = $1`,
		id, in.Name, in.Description, in.Province, destinationSearchKey(in.Name, in.Province), images, isPublic)
	if err != nil {
		return nil, fmt.Errorf("update destination: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, db, id)
}

func (r *destinationRepo) TransitionStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.DestinationStatus, from ...domain.DestinationStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}
	tag, err := db.Exec(ctx, `
		UPDATE destinations SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`,
		id, string(status), allowed)
	if err != nil {
		return false, fmt.Errorf("update destination status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *destinationRepo) SetCategories(ctx context.Context, db DBTX, id uuid.UUID, categoryIDs []int) error {
	if _, err := db.Exec(ctx, `DELETE FROM destination_categories WHERE destination_id = $1`, id); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := db.Exec(ctx, `
		INSERT INTO destination_categories (destination_id, category_id)
		SELECT $1, c.id FROM categories c WHERE c.id = ANY($2)
		ON CONFLICT DO NOTHING`, id, categoryIDs)
	if err != nil {
		return fmt.Errorf("link categories: %w", err)
	}
	return nil
}

func (r *destinationRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	if _, err := db.Exec(ctx, `DELETE FROM destination_categories WHERE destination_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete destination categories: %w", err)
	}
	tag, err := db.Exec(ctx, `DELETE FROM destinations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete destination: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func destinationSearchKey(name, province string) string {
	return domain.SearchKey(strings.Join([]string{name, province}, " "))
}
