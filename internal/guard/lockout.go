package guard

import (
	"context"
	"strings"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// Querier is the subset of pgxpool.Pool the lockout checks need.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// RecordAttempt inserts a login attempt row. Emails are compared lower-cased.
func RecordAttempt(ctx context.Context, db Querier, email, ip string, success bool) {
	_, _ = db.Exec(ctx, `
		INSERT INTO login_attempts (email, ip_address, success)
		VALUES ($1, $2, $3)`,
		strings.ToLower(email), ip, success)
}

// CheckLocked returns ErrAccountLocked if the email has >= MaxAttempts failed
// logins within the lockout window.
func CheckLocked(ctx context.Context, db Querier, email string) error {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE email = $1 AND success = false
		  AND created_at > $2`,
		strings.ToLower(email), time.Now().Add(-LockoutWindow)).Scan(&count)
	if err != nil {
		return nil // fail open on DB error, never block login
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}
