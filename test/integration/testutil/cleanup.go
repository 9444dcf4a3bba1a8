//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every table the tests write to. Categories are seed data
// and stay.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tables := []string{
		"reviews",
		"destination_categories",
		"destinations",
		"login_attempts",
		"event_outbox",
		"users",
	}

	for _, table := range tables {
		if _, err := env.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			env.t.Fatalf("truncate %s: %v", table, err)
		}
	}
}
