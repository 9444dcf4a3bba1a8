package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakePool stands in for pgxpool.Pool. It only understands the login_attempts
// statements issued by the lockout guard; repositories are faked separately.
type fakePool struct {
	mu        sync.Mutex
	failed    map[string]int
	commits   int
	rollbacks int
	beginErr  error
}

func newFakePool() *fakePool {
	return &fakePool{failed: map[string]int{}}
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "login_attempts") && len(args) == 3 {
		if ok, _ := args[2].(bool); !ok {
			p.mu.Lock()
			p.failed[args[0].(string)]++
			p.mu.Unlock()
		}
	}
	return pgconn.CommandTag{}, nil
}

func (p *fakePool) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("fakePool: Query not supported")
}

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	if strings.Contains(sql, "login_attempts") && len(args) > 0 {
		p.mu.Lock()
		defer p.mu.Unlock()
		return countRow(p.failed[args[0].(string)])
	}
	return countRow(0)
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return &fakeTx{pool: p}, nil
}

type countRow int

func (r countRow) Scan(dest ...interface{}) error {
	if n, ok := dest[0].(*int); ok {
		*n = int(r)
	}
	return nil
}

// fakeTx undoes the writes registered through onRollback unless committed.
type fakeTx struct {
	pgx.Tx
	pool *fakePool
	done bool
	undo []func()
}

func (t *fakeTx) Commit(context.Context) error {
	t.done = true
	t.pool.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if !t.done {
		t.done = true
		t.pool.rollbacks++
		for i := len(t.undo) - 1; i >= 0; i-- {
			t.undo[i]()
		}
	}
	return nil
}

func onRollback(db repository.DBTX, fn func()) {
	if tx, ok := db.(*fakeTx); ok {
		tx.undo = append(tx.undo, fn)
	}
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return t.pool.Exec(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return t.pool.QueryRow(ctx, sql, args...)
}

// --- users ---

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*domain.User
	score map[uuid.UUID]int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uuid.UUID]*domain.User{}, score: map[uuid.UUID]int{}}
}

func (f *fakeUsers) add(username, email, role string) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &domain.User{ID: uuid.New(), Username: username, Email: email, Role: role, CreatedAt: time.Now()}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) Create(_ context.Context, _ repository.DBTX, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, _ repository.DBTX, id uuid.UUID, username, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	u.Username, u.Email = username, strings.ToLower(email)
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) UpdateRole(_ context.Context, _ repository.DBTX, id uuid.UUID, role string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	u.Role = role
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	delete(f.byID, id)
	return ok, nil
}

func (f *fakeUsers) summaries(filter func(*domain.User) bool) []domain.UserSummary {
	out := []domain.UserSummary{}
	for _, u := range f.byID {
		if filter(u) {
			out = append(out, domain.UserSummary{ID: u.ID, Username: u.Username, TotalScore: f.score[u.ID], CreatedAt: u.CreatedAt})
		}
	}
	return out
}

func (f *fakeUsers) List(context.Context, repository.DBTX) ([]domain.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries(func(*domain.User) bool { return true }), nil
}

func (f *fakeUsers) Top(_ context.Context, _ repository.DBTX, limit int) ([]domain.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.summaries(func(*domain.User) bool { return true })
	sort.Slice(out, func(i, j int) bool { return out[i].TotalScore > out[j].TotalScore })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUsers) Search(_ context.Context, _ repository.DBTX, key string) ([]domain.UserSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries(func(u *domain.User) bool {
		return strings.Contains(domain.SearchKey(u.Username), key)
	}), nil
}

func (f *fakeUsers) Profile(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	return &domain.UserProfile{User: *u, TotalScore: f.score[id], Medals: []domain.Medal{}}, nil
}

// --- destinations ---

type fakeDestinations struct {
	mu         sync.Mutex
	rows       []*domain.Destination
	categories map[uuid.UUID][]int
}

func newFakeDestinations() *fakeDestinations {
	return &fakeDestinations{categories: map[uuid.UUID][]int{}}
}

func (f *fakeDestinations) find(match func(*domain.Destination) bool) *domain.Destination {
	for _, d := range f.rows {
		if match(d) {
			cp := *d
			return &cp
		}
	}
	return nil
}

func (f *fakeDestinations) Create(_ context.Context, db repository.DBTX, d *domain.Destination) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	cp := *d
	f.rows = append(f.rows, &cp)
	onRollback(db, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, row := range f.rows {
			if row == &cp {
				f.rows = append(f.rows[:i], f.rows[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (f *fakeDestinations) SlugExists(_ context.Context, _ repository.DBTX, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(d *domain.Destination) bool { return d.Slug == slug }) != nil, nil
}

func (f *fakeDestinations) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(d *domain.Destination) bool { return d.ID == id }), nil
}

func (f *fakeDestinations) FindBySlug(_ context.Context, _ repository.DBTX, slug string) (*domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(d *domain.Destination) bool { return d.Slug == slug }), nil
}

func (f *fakeDestinations) filter(match func(*domain.Destination) bool) []domain.Destination {
	out := []domain.Destination{}
	for i := len(f.rows) - 1; i >= 0; i-- {
		if match(f.rows[i]) {
			out = append(out, *f.rows[i])
		}
	}
	return out
}

func (f *fakeDestinations) List(_ context.Context, _ repository.DBTX, status *domain.DestinationStatus, limit int) ([]domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.filter(func(d *domain.Destination) bool { return status == nil || d.Status == *status })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDestinations) ListByCreator(_ context.Context, _ repository.DBTX, userID uuid.UUID) ([]domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(d *domain.Destination) bool { return d.CreatedBy != nil && *d.CreatedBy == userID }), nil
}

func (f *fakeDestinations) Search(_ context.Context, _ repository.DBTX, key string) ([]domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter(func(d *domain.Destination) bool {
		return d.Status == domain.StatusActive && strings.Contains(domain.SearchKey(d.Name+" "+d.Province), key)
	}), nil
}

func (f *fakeDestinations) Update(_ context.Context, _ repository.DBTX, id uuid.UUID, in domain.DestinationInput) (*domain.Destination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.ID == id {
			d.Name, d.Description, d.Province = in.Name, in.Description, in.Province
			if in.Images != nil {
				d.Images = in.Images
			}
			if in.IsPublic != nil {
				d.IsPublic = *in.IsPublic
			}
			cp := *d
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDestinations) TransitionStatus(_ context.Context, db repository.DBTX, id uuid.UUID, status domain.DestinationStatus, from ...domain.DestinationStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.ID != id {
			continue
		}
		for _, s := range from {
			if d.Status == s {
				row, prev := d, d.Status
				d.Status = status
				onRollback(db, func() {
					f.mu.Lock()
					defer f.mu.Unlock()
					row.Status = prev
				})
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (f *fakeDestinations) SetCategories(_ context.Context, db repository.DBTX, id uuid.UUID, categoryIDs []int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, had := f.categories[id]
	f.categories[id] = categoryIDs
	onRollback(db, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if had {
			f.categories[id] = prev
		} else {
			delete(f.categories, id)
		}
	})
	return nil
}

func (f *fakeDestinations) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.rows {
		if d.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			delete(f.categories, id)
			return true, nil
		}
	}
	return false, nil
}

// --- reviews ---

type fakeReviews struct {
	mu   sync.Mutex
	rows []domain.Review
}

func (f *fakeReviews) Create(_ context.Context, _ repository.DBTX, r *domain.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	f.rows = append(f.rows, *r)
	return nil
}

func (f *fakeReviews) ListByTarget(_ context.Context, _ repository.DBTX, targetType string, targetID uuid.UUID) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Review{}
	for _, r := range f.rows {
		if r.TargetType == targetType && r.TargetID == targetID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviews) ListByUser(_ context.Context, _ repository.DBTX, userID uuid.UUID) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Review{}
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviews) DeleteByTarget(_ context.Context, _ repository.DBTX, targetType string, targetID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.TargetType != targetType || r.TargetID != targetID {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeReviews) Delete(_ context.Context, _ repository.DBTX, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// --- outbox ---

type fakeOutbox struct {
	mu     sync.Mutex
	drafts []domain.OutboxDraft
}

func (f *fakeOutbox) Insert(_ context.Context, db repository.DBTX, draft domain.OutboxDraft) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts = append(f.drafts, draft)
	n := len(f.drafts)
	onRollback(db, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.drafts = f.drafts[:n-1]
	})
	return nil
}

func (f *fakeOutbox) FetchUnpublishedRows(context.Context, repository.DBTX, int) ([]domain.OutboxRow, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkPublished(context.Context, repository.DBTX, []int64) error { return nil }

func (f *fakeOutbox) types() []domain.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.EventType, len(f.drafts))
	for i, d := range f.drafts {
		out[i] = d.EventType
	}
	return out
}
