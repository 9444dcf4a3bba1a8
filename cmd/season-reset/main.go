// Command season-reset rebases every account on its medals once and exits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/destinos/platform/internal/gamification"
	"github.com/destinos/platform/internal/infra"
	"github.com/destinos/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("season reset failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	accounts := repository.NewPgAccountStore(pool, repository.NewOutboxRepository())
	coordinator := gamification.NewSeasonCoordinator(accounts, cfg.SeasonResetWorkers, logger)

	return reset(ctx, coordinator, logger)
}

// reset runs one season reset and reports its counts, so a partial failure
// still tells the operator how far it got.
func reset(ctx context.Context, coordinator *gamification.SeasonCoordinator, logger *slog.Logger) error {
	res, err := coordinator.ResetSeason(ctx)
	if res == nil {
		return fmt.Errorf("reset season: %w", err)
	}
	logger.Info("season reset summary",
		"accounts_scanned", res.AccountsScanned,
		"accounts_updated", res.AccountsUpdated,
		"accounts_failed", res.AccountsFailed,
	)
	if err != nil {
		return fmt.Errorf("reset season: %d of %d accounts failed: %w", res.AccountsFailed, res.AccountsScanned, err)
	}
	return nil
}
