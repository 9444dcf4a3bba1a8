package gamification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 6, 15, 9, 30, 0, 0, time.UTC)

func newTestEngine(store AccountStore) *Engine {
	e := NewEngine(store, testLogger())
	e.now = func() time.Time { return fixedNow }
	return e
}

func seedAccount(t *testing.T, store *repository.MemoryAccountStore, score, subs, approvals int, medals []domain.Medal) uuid.UUID {
	t.Helper()
	acc, err := domain.RestoreAccount(uuid.New(), score, subs, approvals, medals, 0)
	require.NoError(t, err)
	store.Put(acc)
	return acc.ID
}

func TestApplyAction_SubmissionMedalOncePerSeason(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 0, 0, 0, nil)
	e := newTestEngine(store)

	var medalCalls int
	for i := 1; i <= 11; i++ {
		res, err := e.ApplyAction(ctx, id, domain.ActionSubmission)
		require.NoError(t, err)
		if res.MedalAwarded != nil {
			medalCalls++
			assert.Equal(t, 10, i, "medal must come with the 10th submission")
		}
		if i == 11 {
			assert.False(t, res.Applied)
		}
	}
	assert.Equal(t, 1, medalCalls)

	acc, err := store.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.YearlyLimit, acc.SubmissionCount)
	assert.Equal(t, 100, acc.TotalScore)
	require.Len(t, acc.Medals, 1)
	assert.Equal(t, "🏅 Constancia 2026", acc.Medals[0].Name)
	assert.Equal(t, domain.MedalValue, acc.Medals[0].Value)
	assert.True(t, acc.Medals[0].AwardedAt.Equal(fixedNow))
}

func TestApplyAction_ApprovalScenario(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 0, 0, 0, nil)
	e := newTestEngine(store)

	var res *ActionResult
	var err error
	for i := 0; i < 5; i++ {
		res, err = e.ApplyAction(ctx, id, domain.ActionApproval)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, res.Account.ApprovalCount)
	assert.Equal(t, 250, res.NewScore)
	assert.Empty(t, res.NewMedals)

	for i := 0; i < 5; i++ {
		res, err = e.ApplyAction(ctx, id, domain.ActionApproval)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, res.Account.ApprovalCount)
	assert.Equal(t, 500, res.NewScore)
	require.Len(t, res.NewMedals, 1)
	assert.Equal(t, "🌟 Calidad 2026", res.NewMedals[0].Name)
	assert.Equal(t, 100, res.NewMedals[0].Value)

	before, err := store.GetAccount(ctx, id)
	require.NoError(t, err)

	res, err = e.ApplyAction(ctx, id, domain.ActionApproval)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	after, err := store.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after, "11th approval must not write")
}

func TestApplyAction_RejectionIsNoop(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 60, 1, 1, nil)
	e := newTestEngine(store)

	res, err := e.ApplyAction(ctx, id, domain.ActionRejection)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, 60, res.NewScore)
	assert.Empty(t, store.Events())
}

func TestApplyAction_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown kind", func(t *testing.T) {
		e := newTestEngine(repository.NewMemoryAccountStore())
		_, err := e.ApplyAction(ctx, uuid.New(), domain.ActionKind("bonus"))
		require.Error(t, err)
		assert.True(t, domain.HasCode(err, domain.CodeValidation))
	})

	t.Run("missing account", func(t *testing.T) {
		e := newTestEngine(repository.NewMemoryAccountStore())
		_, err := e.ApplyAction(ctx, uuid.New(), domain.ActionSubmission)
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("storage failure surfaces as persistence error", func(t *testing.T) {
		store := repository.NewMemoryAccountStore()
		id := seedAccount(t, store, 0, 0, 0, nil)
		store.BeforeUpdate = func(context.Context, *domain.Account) error {
			return errors.New("connection reset by peer")
		}
		e := newTestEngine(store)

		_, err := e.ApplyAction(ctx, id, domain.ActionSubmission)
		require.Error(t, err)
		assert.True(t, domain.IsPersistence(err))

		acc, getErr := store.GetAccount(ctx, id)
		require.NoError(t, getErr)
		assert.Equal(t, 0, acc.TotalScore)
	})
}

func TestApplyAction_EventsWrittenWithUpdate(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 450, 0, 9, nil)
	e := newTestEngine(store)

	_, err := e.ApplyAction(ctx, id, domain.ActionApproval)
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventPointsAwarded, events[0].EventType)
	assert.Equal(t, domain.EventMedalAwarded, events[1].EventType)
	assert.Equal(t, id.String(), events[1].AggregateID)
}

func TestApplyAction_RetriesAfterConflict(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 0, 0, 0, nil)

	var once sync.Once
	store.BeforeUpdate = func(ctx context.Context, _ *domain.Account) error {
		once.Do(func() {
			// A competing writer lands between our read and our write.
			other, err := store.GetAccount(ctx, id)
			require.NoError(t, err)
			other.Accrue(domain.ActionSubmission, fixedNow)
			other.Version++
			store.Put(other)
		})
		return nil
	}
	e := newTestEngine(store)

	res, err := e.ApplyAction(ctx, id, domain.ActionSubmission)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 2, res.Account.SubmissionCount)
	assert.Equal(t, 20, res.NewScore)
}

func TestApplyAction_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 0, 0, 0, nil)

	attempts := 0
	store.BeforeUpdate = func(ctx context.Context, _ *domain.Account) error {
		attempts++
		other, err := store.GetAccount(ctx, id)
		require.NoError(t, err)
		other.Version++
		store.Put(other)
		return nil
	}
	e := newTestEngine(store)

	_, err := e.ApplyAction(ctx, id, domain.ActionSubmission)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, MaxConflictRetries+1, attempts)
}

func TestApplyAction_ConcurrentApprovalsAtThreshold(t *testing.T) {
	ctx := context.Background()

	for run := 0; run < 20; run++ {
		store := repository.NewMemoryAccountStore()
		id := seedAccount(t, store, 450, 0, 9, nil)
		e := newTestEngine(store)

		const callers = 8
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := e.ApplyAction(ctx, id, domain.ActionApproval)
				errs <- err
			}()
		}
		close(start)
		wg.Wait()
		close(errs)

		for err := range errs {
			require.NoError(t, err)
		}

		acc, err := store.GetAccount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 10, acc.ApprovalCount)
		assert.Equal(t, 500, acc.TotalScore)
		assert.Len(t, acc.Medals, 1, "exactly one medal at the threshold")
	}
}

func TestApplyAction_ConcurrentSubmissionsAreNotLost(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 0, 0, 0, nil)
	e := newTestEngine(store)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.ApplyAction(ctx, id, domain.ActionSubmission)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	acc, err := store.GetAccount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, acc.SubmissionCount)
	assert.Equal(t, 40, acc.TotalScore)
}

type stubTx struct{ pgx.Tx }

func TestApplyActionTx_WritesThroughBoundStore(t *testing.T) {
	ctx := context.Background()
	pooled := repository.NewMemoryAccountStore()
	scoped := repository.NewMemoryAccountStore()
	id := seedAccount(t, scoped, 0, 0, 0, nil)

	tx := &stubTx{}
	var bound pgx.Tx
	e := newTestEngine(pooled).WithTxStore(func(got pgx.Tx) AccountStore {
		bound = got
		return scoped
	})

	res, err := e.ApplyActionTx(ctx, tx, id, domain.ActionSubmission)
	require.NoError(t, err)
	assert.Same(t, tx, bound)
	assert.Equal(t, domain.PointsSubmission, res.NewScore)
	assert.Len(t, scoped.Events(), 1)
	assert.Empty(t, pooled.Events())

	_, err = e.ApplyAction(ctx, id, domain.ActionSubmission)
	assert.True(t, domain.IsNotFound(err), "ApplyAction keeps using the engine's own store")
}

func TestApplyActionTx_WithoutBinderUsesOwnStore(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 0, 0, 0, nil)
	e := newTestEngine(store)

	res, err := e.ApplyActionTx(ctx, &stubTx{}, id, domain.ActionApproval)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.Account.ApprovalCount)
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryAccountStore()
	id := seedAccount(t, store, 30, 3, 0, nil)
	e := newTestEngine(store)

	acc, err := e.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 30, acc.TotalScore)

	_, err = e.Snapshot(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}
