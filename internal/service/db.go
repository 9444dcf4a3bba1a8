package service

import (
	"context"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
	"github.com/jackc/pgx/v5"
)

// Pool is the part of pgxpool.Pool the services use.
type Pool interface {
	repository.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// withTx runs fn inside a transaction and commits when fn returns nil.
func withTx(ctx context.Context, db Pool, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return domain.ErrPersistence("begin tx", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrPersistence("commit tx", err)
	}
	return nil
}
