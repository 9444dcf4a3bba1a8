package gamification

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultResetWorkers is the number of accounts reset concurrently.
const DefaultResetWorkers = 8

// ResetResult summarises a season reset run.
type ResetResult struct {
	AccountsScanned int `json:"accounts_scanned"`
	AccountsUpdated int `json:"accounts_updated"`
	AccountsFailed  int `json:"accounts_failed"`
}

// SeasonCoordinator rebases every account on its medals and clears the
// per-season counters.
type SeasonCoordinator struct {
	store   AccountStore
	logger  *slog.Logger
	workers int
	now     func() time.Time
}

// NewSeasonCoordinator creates a coordinator. workers <= 0 uses DefaultResetWorkers.
func NewSeasonCoordinator(store AccountStore, workers int, logger *slog.Logger) *SeasonCoordinator {
	if workers <= 0 {
		workers = DefaultResetWorkers
	}
	return &SeasonCoordinator{store: store, logger: logger, workers: workers, now: time.Now}
}

// ResetSeason resets all accounts. Each account is reset atomically on its own;
// a failure on one account does not stop or undo the others. Accounts already
// at their baseline are not rewritten, so reruns are safe. The returned error
// is the first failure seen.
func (c *SeasonCoordinator) ResetSeason(ctx context.Context) (*ResetResult, error) {
	ids, err := c.store.ListAccountIDs(ctx)
	if err != nil {
		return nil, asPersistence("list accounts", err)
	}

	started := c.now()
	var updated, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, id := range ids {
		g.Go(func() error {
			changed, err := c.resetAccount(ctx, id)
			if err != nil {
				failed.Add(1)
				c.logger.Error("season reset failed for account", "user_id", id, "error", err)
				return fmt.Errorf("reset account %s: %w", id, err)
			}
			if changed {
				updated.Add(1)
			}
			return nil
		})
	}
	runErr := g.Wait()

	result := &ResetResult{
		AccountsScanned: len(ids),
		AccountsUpdated: int(updated.Load()),
		AccountsFailed:  int(failed.Load()),
	}
	c.logger.Info("season reset finished",
		"scanned", result.AccountsScanned,
		"updated", result.AccountsUpdated,
		"failed", result.AccountsFailed,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result, runErr
}

func (c *SeasonCoordinator) resetAccount(ctx context.Context, id uuid.UUID) (bool, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxConflictRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		acc, err := c.store.GetAccount(ctx, id)
		if domain.IsNotFound(err) {
			return false, nil // deleted since listing
		}
		if err != nil {
			return false, asPersistence("load account", err)
		}
		if !acc.NeedsReset() {
			return false, nil
		}

		expected := acc.Version
		previous := acc.TotalScore
		acc.ResetSeason()

		err = c.store.UpdateAccount(ctx, acc, expected, domain.NewSeasonResetEvent(acc, previous, c.now()))
		switch {
		case err == nil:
			return true, nil
		case domain.IsNotFound(err):
			return false, nil
		case domain.IsConflict(err):
			lastErr = err
			c.logger.Debug("account version conflict during reset, retrying", "user_id", id, "attempt", attempt+1)
		default:
			return false, asPersistence("update account", err)
		}
	}
	return false, lastErr
}
