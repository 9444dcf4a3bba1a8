package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
)

// MemoryAccountStore is an in-process account store with the same
// compare-and-swap semantics as PgAccountStore. Used by tests and local tools.
type MemoryAccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
	events   []domain.OutboxDraft

	// BeforeUpdate, when set, runs before each UpdateAccount outside the lock.
	// A non-nil error aborts the update and is returned as-is.
	BeforeUpdate func(ctx context.Context, acc *domain.Account) error
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

// Put inserts or replaces an account, resetting its version to acc.Version.
func (s *MemoryAccountStore) Put(acc *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acc.ID] = acc.Clone()
}

func (s *MemoryAccountStore) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound("account", id.String())
	}
	return acc.Clone(), nil
}

func (s *MemoryAccountStore) UpdateAccount(ctx context.Context, acc *domain.Account, expectedVersion int64, events ...domain.OutboxDraft) error {
	if s.BeforeUpdate != nil {
		if err := s.BeforeUpdate(ctx, acc); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[acc.ID]
	if !ok {
		return domain.ErrNotFound("account", acc.ID.String())
	}
	if current.Version != expectedVersion {
		return domain.ErrConflict(fmt.Sprintf("account %s changed since version %d", acc.ID, expectedVersion))
	}

	acc.Version = expectedVersion + 1
	acc.UpdatedAt = time.Now()
	s.accounts[acc.ID] = acc.Clone()
	s.events = append(s.events, events...)
	return nil
}

func (s *MemoryAccountStore) ListAccountIDs(_ context.Context) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// Events returns a copy of every event committed with an update.
func (s *MemoryAccountStore) Events() []domain.OutboxDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OutboxDraft, len(s.events))
	copy(out, s.events)
	return out
}
