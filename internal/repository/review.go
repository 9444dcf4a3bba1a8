package repository

import (
	"context"
	"fmt"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
)

type reviewRepo struct{}

// NewReviewRepository returns a pgx-backed ReviewRepository.
func NewReviewRepository() ReviewRepository {
	return &reviewRepo{}
}

func (r *reviewRepo) Create(ctx context.Context, db DBTX, review *domain.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	err := db.QueryRow(ctx, `
		INSERT INTO reviews (id, user_id, target_id, target_type, comment, stars)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		review.ID, review.UserID, review.TargetID, review.TargetType, review.Comment, review.Stars,
	).Scan(&review.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *reviewRepo) ListByTarget(ctx context.Context, db DBTX, targetType string, targetID uuid.UUID) ([]domain.Review, error) {
	rows, err := db.Query(ctx, `
		SELECT r.id, r.user_id, u.username, r.target_id, r.target_type, r.comment, r.stars, r.created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.target_type = $1 AND r.target_id = $2
		ORDER BY r.created_at DESC`, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by target: %w", err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Username, &rv.TargetID, &rv.TargetType,
			&rv.Comment, &rv.Stars, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *reviewRepo) ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.Review, error) {
	rows, err := db.Query(ctx, `
		SELECT r.id, r.user_id, r.target_id, r.target_type, d.name, r.comment, r.stars, r.created_at
		FROM reviews r
		LEFT JOIN destinations d ON d.id = r.target_id AND r.target_type = 'destination'
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by user: %w", err)
	}
	defer rows.Close()

	out := []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.TargetID, &rv.TargetType, &rv.TargetName,
			&rv.Comment, &rv.Stars, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *reviewRepo) DeleteByTarget(ctx context.Context, db DBTX, targetType string, targetID uuid.UUID) error {
	_, err := db.Exec(ctx, `DELETE FROM reviews WHERE target_type = $1 AND target_id = $2`, targetType, targetID)
	if err != nil {
		return fmt.Errorf("delete reviews by target: %w", err)
	}
	return nil
}

func (r *reviewRepo) Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
