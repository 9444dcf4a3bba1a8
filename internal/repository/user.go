package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PgUserRepository implements UserRepository using pgx.
type PgUserRepository struct{}

// NewPgUserRepository creates a new PgUserRepository.
func NewPgUserRepository() *PgUserRepository {
	return &PgUserRepository{}
}

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// FindByID returns a user by ID, or nil if not found.
func (r *PgUserRepository) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// FindByEmail returns a user by email, or nil if not found.
func (r *PgUserRepository) FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error) {
	u, err := scanUser(db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// Create inserts a new user. The gamification columns take their zero defaults.
func (r *PgUserRepository) Create(ctx context.Context, db DBTX, user *domain.User) error {
	err := db.QueryRow(ctx, `
		INSERT INTO users (id, username, email, password_hash, role, search_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		user.ID, user.Username, strings.ToLower(user.Email), user.PasswordHash, user.Role,
		domain.SearchKey(user.Username),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdateProfile changes username and email.
func (r *PgUserRepository) UpdateProfile(ctx context.Context, db DBTX, id uuid.UUID, username, email string) (*domain.User, error) {
	u, err := scanUser(db.QueryRow(ctx, `
		UPDATE users
		SET username = $2, email = $3, search_key = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, username, strings.ToLower(email), domain.SearchKey(username)))
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

// UpdateRole changes the role of a user.
func (r *PgUserRepository) UpdateRole(ctx context.Context, db DBTX, id uuid.UUID, role string) (*domain.User, error) {
	u, err := scanUser(db.QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns, id, role))
	if err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	return u, nil
}

// Delete removes a user. Destinations they suggested keep a NULL creator.
func (r *PgUserRepository) Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgUserRepository) List(ctx context.Context, db DBTX) ([]domain.UserSummary, error) {
	return r.summaries(ctx, db, `
		SELECT id, username, email, role, total_score, created_at
		FROM users ORDER BY created_at DESC`)
}

func (r *PgUserRepository) Top(ctx context.Context, db DBTX, limit int) ([]domain.UserSummary, error) {
	return r.summaries(ctx, db, `
		SELECT id, username, '', '', total_score, created_at
		FROM users ORDER BY total_score DESC, created_at ASC
		LIMIT $1`, limit)
}

func (r *PgUserRepository) Search(ctx context.Context, db DBTX, key string) ([]domain.UserSummary, error) {
	return r.summaries(ctx, db, `
		SELECT id, username, email, role, total_score, created_at
		FROM users
		WHERE search_key LIKE '%' || $1 || '%'
		ORDER BY username ASC`, key)
}

func (r *PgUserRepository) summaries(ctx context.Context, db DBTX, query string, args ...interface{}) ([]domain.UserSummary, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []domain.UserSummary{}
	for rows.Next() {
		var s domain.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Email, &s.Role, &s.TotalScore, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Profile returns the user with score, counters and medals, or nil.
func (r *PgUserRepository) Profile(ctx context.Context, db DBTX, id uuid.UUID) (*domain.UserProfile, error) {
	p := &domain.UserProfile{}
	var medals []byte
	err := db.QueryRow(ctx, `
		SELECT `+userColumns+`, total_score, submissions_count, approvals_count, medals
		FROM users WHERE id = $1`, id).Scan(
		&p.ID, &p.Username, &p.Email, &p.PasswordHash, &p.Role, &p.CreatedAt, &p.UpdatedAt,
		&p.TotalScore, &p.SubmissionCount, &p.ApprovalCount, &medals,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if p.Medals, err = decodeMedals(medals); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeMedals(raw []byte) ([]domain.Medal, error) {
	medals := []domain.Medal{}
	if len(raw) == 0 {
		return medals, nil
	}
	if err := json.Unmarshal(raw, &medals); err != nil {
		return nil, fmt.Errorf("decode medals: %w", err)
	}
	return medals, nil
}
