package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller drains the event_outbox table into Kafka, oldest first.
type OutboxPoller struct {
	db          repository.DBTX
	repo        repository.OutboxRepository
	producer    Publisher
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	topicPrefix string
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(db repository.DBTX, repo repository.OutboxRepository, producer Publisher, logger *slog.Logger) *OutboxPoller {
	return &OutboxPoller{
		db:          db,
		repo:        repo,
		producer:    producer,
		logger:      logger,
		interval:    2 * time.Second,
		batchSize:   100,
		topicPrefix: "destinos",
	}
}

// WithSettings overrides interval, batch size and topic prefix. Zero values
// keep the defaults.
func (p *OutboxPoller) WithSettings(interval time.Duration, batchSize int, topicPrefix string) *OutboxPoller {
	if interval > 0 {
		p.interval = interval
	}
	if batchSize > 0 {
		p.batchSize = batchSize
	}
	if topicPrefix != "" {
		p.topicPrefix = topicPrefix
	}
	return p
}

// Topic returns the Kafka topic for an outbox row.
func (p *OutboxPoller) Topic(row domain.OutboxRow) string {
	return p.topicPrefix + "." + string(row.AggregateType) + "." + string(row.EventType)
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) error {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return nil
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				p.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// Start runs the poller in a goroutine. Stops when ctx is cancelled.
func (p *OutboxPoller) Start(ctx context.Context) {
	go func() { _ = p.Run(ctx) }()
}

// PollOnce publishes one batch and returns how many events were published.
// Publishing stops at the first failure so later events never overtake it.
func (p *OutboxPoller) PollOnce(ctx context.Context) (int, error) {
	rows, err := p.repo.FetchUnpublishedRows(ctx, p.db, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(rows))
	var publishErr error
	for _, row := range rows {
		msg, err := json.Marshal(map[string]interface{}{
			"event_id":       row.EventID,
			"aggregate_type": row.AggregateType,
			"aggregate_id":   row.AggregateID,
			"event_type":     row.EventType,
			"payload":        row.Payload,
			"occurred_at":    row.OccurredAt,
		})
		if err != nil {
			publishErr = fmt.Errorf("encode event %s: %w", row.EventID, err)
			break
		}

		if err := p.producer.Publish(ctx, p.Topic(row), []byte(row.PartitionKey), msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", row.EventID, "error", err)
			publishErr = fmt.Errorf("publish event %s: %w", row.EventID, err)
			break
		}
		published = append(published, row.SeqID)
	}

	if err := p.repo.MarkPublished(ctx, p.db, published); err != nil {
		return 0, err
	}

	p.logger.Debug("outbox poll complete", "published", len(published))
	return len(published), publishErr
}
