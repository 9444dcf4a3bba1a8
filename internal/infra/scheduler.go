package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/destinos/platform/internal/gamification"
	"github.com/go-co-op/gocron/v2"
)

// SeasonResetter runs a season reset.
type SeasonResetter interface {
	ResetSeason(ctx context.Context) (*gamification.ResetResult, error)
}

// SeasonScheduler triggers season resets on a cron expression.
type SeasonScheduler struct {
	sched    gocron.Scheduler
	resetter SeasonResetter
	logger   *slog.Logger
	timeout  time.Duration
	job      gocron.Job
}

// NewSeasonScheduler registers the reset job. Overlapping runs are skipped.
func NewSeasonScheduler(cronExpr string, resetter SeasonResetter, logger *slog.Logger) (*SeasonScheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	s := &SeasonScheduler{sched: sched, resetter: resetter, logger: logger, timeout: 30 * time.Minute}
	job, err := sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.run),
		gocron.WithName("season-reset"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule season reset %q: %w", cronExpr, err)
	}
	s.job = job
	return s, nil
}

// Start begins scheduling.
func (s *SeasonScheduler) Start() {
	s.sched.Start()
	if next, err := s.job.NextRun(); err == nil {
		s.logger.Info("season reset scheduled", "next_run", next)
	}
}

// Shutdown stops the scheduler and waits for a running reset to finish.
func (s *SeasonScheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *SeasonScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.logger.Info("scheduled season reset starting")
	res, err := s.resetter.ResetSeason(ctx)
	if err != nil {
		s.logger.Error("scheduled season reset failed", "error", err)
		return
	}
	s.logger.Info("scheduled season reset done", "accounts_updated", res.AccountsUpdated)
}
