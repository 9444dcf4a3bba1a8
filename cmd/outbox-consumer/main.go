package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/destinos/platform/internal/infra"
	"github.com/destinos/platform/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
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

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("outbox-consumer connected to postgres")

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Error("close kafka producer", "error", err)
		}
	}()
	if !producer.Enabled() {
		logger.Warn("kafka disabled, outbox events are marked published without delivery")
	}

	poller := infra.NewOutboxPoller(pool, repository.NewOutboxRepository(), producer, logger).
		WithSettings(cfg.OutboxPollInterval, cfg.OutboxBatchSize, cfg.TopicPrefix)

	return poller.Run(ctx)
}
