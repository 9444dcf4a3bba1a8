package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// beginner is a connection that can open a transaction: *pgxpool.Pool, or a
// pgx.Tx, where Begin creates a savepoint.
type beginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgAccountStore persists gamification accounts in the users table. Every write
// is a compare-and-swap on the version column.
type PgAccountStore struct {
	db     beginner
	outbox OutboxRepository
}

// NewPgAccountStore creates an account store backed by pool.
func NewPgAccountStore(pool *pgxpool.Pool, outbox OutboxRepository) *PgAccountStore {
	return &PgAccountStore{db: pool, outbox: outbox}
}

// InTx returns a store that reads and writes through tx. Each update runs in
// a savepoint, so a lost compare-and-swap leaves tx usable for a retry.
func (s *PgAccountStore) InTx(tx pgx.Tx) *PgAccountStore {
	return &PgAccountStore{db: tx, outbox: s.outbox}
}

// GetAccount loads the account of a user.
func (s *PgAccountStore) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acc, err := loadAccount(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrPersistence("load account", err)
	}
	if acc == nil {
		return nil, domain.ErrNotFound("account", id.String())
	}
	return acc, nil
}

func loadAccount(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error) {
	var (
		score, subs, approvals int
		raw                    []byte
		version                int64
		updatedAt              time.Time
	)
	row := db.QueryRow(ctx, `
		SELECT total_score, submissions_count, approvals_count, medals, version, updated_at
		FROM users WHERE id = $1`, id)
	err := row.Scan(&score, &subs, &approvals, &raw, &version, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	medals, err := decodeMedals(raw)
	if err != nil {
		return nil, err
	}
	restored, err := domain.RestoreAccount(id, score, subs, approvals, medals, version)
	if err != nil {
		return nil, err
	}
	restored.UpdatedAt = updatedAt
	return restored, nil
}

// UpdateAccount writes acc if the stored version still equals expectedVersion,
// inserting events into the outbox in the same transaction. On success
// acc.Version is advanced. A version mismatch yields ErrConflict; a vanished
// row yields ErrNotFound.
func (s *PgAccountStore) UpdateAccount(ctx context.Context, acc *domain.Account, expectedVersion int64, events ...domain.OutboxDraft) error {
	medals, err := json.Marshal(acc.Medals)
	if err != nil {
		return domain.ErrPersistence("encode medals", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.ErrPersistence("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var newVersion int64
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET total_score = $3, submissions_count = $4, approvals_count = $5,
		    medals = $6, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at`,
		acc.ID, expectedVersion, acc.TotalScore, acc.SubmissionCount, acc.ApprovalCount, medals,
	).Scan(&newVersion, &acc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, acc.ID).Scan(&exists); err != nil {
			return domain.ErrPersistence("check account", err)
		}
		if !exists {
			return domain.ErrNotFound("account", acc.ID.String())
		}
		return domain.ErrConflict(fmt.Sprintf("account %s changed since version %d", acc.ID, expectedVersion))
	}
	if err != nil {
		return domain.ErrPersistence("update account", err)
	}

	for _, evt := range events {
		if err := s.outbox.Insert(ctx, tx, evt); err != nil {
			return domain.ErrPersistence("write outbox", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrPersistence("commit account update", err)
	}
	acc.Version = newVersion
	return nil
}

// ListAccountIDs returns the ID of every account.
func (s *PgAccountStore) ListAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, domain.ErrPersistence("list accounts", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, domain.ErrPersistence("scan account id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrPersistence("list accounts", err)
	}
	return ids, nil
}
