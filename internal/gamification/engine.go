// Package gamification applies the point, medal and season rules to user
// accounts.
package gamification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MaxConflictRetries bounds how often a write is retried after losing a
// compare-and-swap race on the same account.
const MaxConflictRetries = 5

// AccountStore is the persistence contract of the engine. UpdateAccount must
// succeed only if the stored version equals expectedVersion, must advance
// acc.Version on success, and must persist events atomically with the account.
type AccountStore interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateAccount(ctx context.Context, acc *domain.Account, expectedVersion int64, events ...domain.OutboxDraft) error
	ListAccountIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TxBinder returns an AccountStore whose reads and writes run inside tx.
type TxBinder func(tx pgx.Tx) AccountStore

// ActionResult is the outcome of ApplyAction.
type ActionResult struct {
	NewScore     int             `json:"new_score"`
	NewMedals    []domain.Medal  `json:"new_medals"`
	Account      *domain.Account `json:"account"`
	Applied      bool            `json:"applied"`
	MedalAwarded *domain.Medal   `json:"medal_awarded,omitempty"`
}

// Engine scores user actions.
type Engine struct {
	store  AccountStore
	bind   TxBinder
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an engine over store.
func NewEngine(store AccountStore, logger *slog.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// ApplyAction accrues one action of kind for the user. Actions past the yearly
// limit and rejections return the current state with Applied=false and write
// nothing. Lost races are retried against a fresh read.
func (e *Engine) ApplyAction(ctx context.Context, userID uuid.UUID, kind domain.ActionKind) (*ActionResult, error) {
	return e.apply(ctx, e.store, userID, kind)
}

// WithTxStore sets the binder ApplyActionTx uses to join a caller's
// transaction.
func (e *Engine) WithTxStore(bind TxBinder) *Engine {
	e.bind = bind
	return e
}

// ApplyActionTx is ApplyAction with the account write inside tx, so the score
// commits or rolls back together with the caller's other writes. Without a
// binder it writes through the engine's own store.
func (e *Engine) ApplyActionTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind domain.ActionKind) (*ActionResult, error) {
	store := e.store
	if e.bind != nil && tx != nil {
		store = e.bind(tx)
	}
	return e.apply(ctx, store, userID, kind)
}

func (e *Engine) apply(ctx context.Context, store AccountStore, userID uuid.UUID, kind domain.ActionKind) (*ActionResult, error) {
	if _, err := domain.ParseActionKind(string(kind)); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	var lastErr error
	for attempt := 0; attempt <= MaxConflictRetries; attempt++ {
		acc, err := store.GetAccount(ctx, userID)
		if err != nil {
			return nil, asPersistence("load account", err)
		}

		expected := acc.Version
		now := e.now()
		medal, changed := acc.Accrue(kind, now)
		if !changed {
			return resultFor(acc, false, nil), nil
		}

		events := []domain.OutboxDraft{domain.NewPointsAwardedEvent(acc, kind, now)}
		if medal != nil {
			events = append(events, domain.NewMedalAwardedEvent(acc.ID, *medal))
		}

		err = store.UpdateAccount(ctx, acc, expected, events...)
		if err == nil {
			if medal != nil {
				e.logger.Info("medal awarded", "user_id", userID, "medal", medal.Name)
			}
			return resultFor(acc, true, medal), nil
		}
		if !domain.IsConflict(err) {
			return nil, asPersistence("update account", err)
		}

		lastErr = err
		e.logger.Debug("account version conflict, retrying",
			"user_id", userID, "kind", kind, "attempt", attempt+1)

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// Snapshot returns the current account state of a user.
func (e *Engine) Snapshot(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	acc, err := e.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, asPersistence("load account", err)
	}
	return acc, nil
}

func resultFor(acc *domain.Account, applied bool, medal *domain.Medal) *ActionResult {
	medals := make([]domain.Medal, len(acc.Medals))
	copy(medals, acc.Medals)
	return &ActionResult{
		NewScore:     acc.TotalScore,
		NewMedals:    medals,
		Account:      acc,
		Applied:      applied,
		MedalAwarded: medal,
	}
}

// asPersistence passes AppErrors through and marks anything else as a storage
// failure.
func asPersistence(msg string, err error) error {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domain.ErrPersistence(msg, err)
}
