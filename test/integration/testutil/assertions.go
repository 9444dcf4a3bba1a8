//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertAccount queries the users table and asserts the gamification counters.
func AssertAccount(t *testing.T, env *TestEnv, userID uuid.UUID, score, submissions, approvals int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var sc, sub, appr int
	err := env.Pool.QueryRow(ctx,
		"SELECT total_score, submissions_count, approvals_count FROM users WHERE id = $1",
		userID).Scan(&sc, &sub, &appr)
	if err != nil {
		t.Fatalf("AssertAccount: query: %v", err)
	}
	if sc != score {
		t.Errorf("total_score: expected %d, got %d", score, sc)
	}
	if sub != submissions {
		t.Errorf("submissions_count: expected %d, got %d", submissions, sub)
	}
	if appr != approvals {
		t.Errorf("approvals_count: expected %d, got %d", approvals, appr)
	}
}

// DestinationStatus returns the stored status of a destination.
func DestinationStatus(t *testing.T, env *TestEnv, id uuid.UUID) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status string
	if err := env.Pool.QueryRow(ctx, "SELECT status FROM destinations WHERE id = $1", id).Scan(&status); err != nil {
		t.Fatalf("DestinationStatus: %v", err)
	}
	return status
}

// OutboxEventTypes returns the event types recorded for an aggregate, oldest first.
func OutboxEventTypes(t *testing.T, env *TestEnv, aggregateID uuid.UUID) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rows, err := env.Pool.Query(ctx,
		`SELECT "eventType" FROM event_outbox WHERE "aggregateId" = $1 ORDER BY "id"`, aggregateID.String())
	if err != nil {
		t.Fatalf("OutboxEventTypes: %v", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var et string
		if err := rows.Scan(&et); err != nil {
			t.Fatalf("OutboxEventTypes: scan: %v", err)
		}
		types = append(types, et)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("OutboxEventTypes: rows: %v", err)
	}
	return types
}
