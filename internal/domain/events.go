package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

func newDraft(aggregate AggregateType, id uuid.UUID, evt EventType, payload interface{}, at time.Time) OutboxDraft {
	body, _ := json.Marshal(payload)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: aggregate,
		AggregateID:   id.String(),
		EventType:     evt,
		PartitionKey:  id.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       body,
		OccurredAt:    at,
	}
}

// NewPointsAwardedEvent records an accepted gamification action.
func NewPointsAwardedEvent(acc *Account, kind ActionKind, at time.Time) OutboxDraft {
	return newDraft(AggregateAccount, acc.ID, EventPointsAwarded, map[string]interface{}{
		"account_id":  acc.ID.String(),
		"action":      kind,
		"total_score": acc.TotalScore,
		"counter":     acc.Counter(kind),
	}, at)
}

// NewMedalAwardedEvent records a medal appended to an account.
func NewMedalAwardedEvent(accountID uuid.UUID, medal Medal) OutboxDraft {
	return newDraft(AggregateAccount, accountID, EventMedalAwarded, map[string]interface{}{
		"account_id": accountID.String(),
		"medal":      medal,
	}, medal.AwardedAt)
}

// NewSeasonResetEvent records a season rollover for one account.
func NewSeasonResetEvent(acc *Account, previousScore int, at time.Time) OutboxDraft {
	return newDraft(AggregateAccount, acc.ID, EventSeasonReset, map[string]interface{}{
		"account_id":     acc.ID.String(),
		"previous_score": previousScore,
		"baseline":       acc.TotalScore,
		"medals":         len(acc.Medals),
	}, at)
}

// NewUserRegisteredEvent creates a user lifecycle event.
func NewUserRegisteredEvent(userID uuid.UUID, username, email string) OutboxDraft {
	return newDraft(AggregateUser, userID, EventUserRegistered, map[string]string{
		"user_id":  userID.String(),
		"username": username,
		"email":    email,
	}, time.Now())
}

// NewDestinationEvent records a moderation state change for a destination.
func NewDestinationEvent(d *Destination, evt EventType) OutboxDraft {
	payload := map[string]interface{}{
		"destination_id": d.ID.String(),
		"slug":           d.Slug,
		"status":         d.Status,
	}
	if d.CreatedBy != nil {
		payload["created_by"] = d.CreatedBy.String()
	}
	return newDraft(AggregateDestination, d.ID, evt, payload, time.Now())
}
