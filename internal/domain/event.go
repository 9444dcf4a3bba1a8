package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventPointsAwarded       EventType = "points_awarded"
	EventMedalAwarded        EventType = "medal_awarded"
	EventSeasonReset         EventType = "season_reset"
	EventDestinationCreated  EventType = "created"
	EventDestinationApproved EventType = "approved"
	EventDestinationRejected EventType = "rejected"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateAccount     AggregateType = "account"
	AggregateUser        AggregateType = "user"
	AggregateDestination AggregateType = "destination"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// OutboxRow is an outbox draft together with its table sequence id.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}
