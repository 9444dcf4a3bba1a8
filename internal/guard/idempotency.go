package guard

import (
	"context"
	"sync"
	"time"

	"github.com/destinos/platform/internal/domain"
)

// DefaultIdempotencyTTL is how long a processed key blocks replays.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyGuard deduplicates destination submissions by Idempotency-Key.
// Keys are scoped by the caller so two users may reuse the same key.
type IdempotencyGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewIdempotencyGuard creates a new in-memory idempotency guard.
func NewIdempotencyGuard(ttl time.Duration) *IdempotencyGuard {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyGuard{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// ScopedKey joins the caller scope and the client supplied key.
func ScopedKey(scope, key string) string {
	if key == "" {
		return ""
	}
	return scope + ":" + key
}

// Check returns whether the given key has already been processed. The first
// call for a key claims it.
func (ig *IdempotencyGuard) Check(_ context.Context, key string) domain.GuardResult {
	if key == "" {
		return domain.GuardResult{Allowed: true}
	}

	ig.mu.Lock()
	defer ig.mu.Unlock()

	now := ig.now()
	if at, ok := ig.seen[key]; ok && now.Sub(at) < ig.ttl {
		return domain.GuardResult{
			Allowed: false,
			Reason:  "duplicate request: idempotency key already processed",
			Guard:   "idempotency",
		}
	}

	ig.seen[key] = now
	return domain.GuardResult{Allowed: true}
}

// Remove releases a key so a failed request can be retried.
func (ig *IdempotencyGuard) Remove(key string) {
	ig.mu.Lock()
	defer ig.mu.Unlock()
	delete(ig.seen, key)
}
