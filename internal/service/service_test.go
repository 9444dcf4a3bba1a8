package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/destinos/platform/internal/auth"
	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/gamification"
	"github.com/destinos/platform/internal/guard"
	"github.com/destinos/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	pool         *fakePool
	users        *fakeUsers
	destinations *fakeDestinations
	reviews      *fakeReviews
	outbox       *fakeOutbox
	accounts     *repository.MemoryAccountStore
	engine       *gamification.Engine
	images       *recordingStore
	jwt          *auth.JWTManager

	auth *AuthService
	dest *DestinationService
	rev  *ReviewService
	user *UserService
}

func newFixture() *fixture {
	f := &fixture{
		pool:         newFakePool(),
		users:        newFakeUsers(),
		destinations: newFakeDestinations(),
		reviews:      &fakeReviews{},
		outbox:       &fakeOutbox{},
		accounts:     repository.NewMemoryAccountStore(),
		images:       &recordingStore{},
		jwt:          auth.NewJWTManager("service-test-secret", time.Hour),
	}
	f.engine = gamification.NewEngine(f.accounts, testLogger())
	f.auth = NewAuthService(f.pool, f.users, f.outbox, f.jwt, testLogger())
	f.auth.cost = bcrypt.MinCost
	f.dest = NewDestinationService(f.pool, f.destinations, f.reviews, f.users, f.outbox,
		f.engine, f.images, guard.NewIdempotencyGuard(time.Hour), testLogger())
	f.rev = NewReviewService(f.pool, f.reviews, f.destinations)
	f.user = NewUserService(f.pool, f.users, f.engine)
	return f
}

// member registers a user with an empty gamification account.
func (f *fixture) member(name string) uuid.UUID {
	u := f.users.add(name, name+"@example.com", domain.RoleUser)
	f.accounts.Put(domain.NewAccount(u.ID))
	return u.ID
}

type recordingStore struct {
	keys    []string
	deleted []string
	err     error
}

func (s *recordingStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	_, _ = io.ReadAll(body)
	s.keys = append(s.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func (s *recordingStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func playa() domain.DestinationInput {
	return domain.DestinationInput{
		Name:        "Playa de Bolonia",
		Description: "Dunas y ruinas romanas",
		Province:    "Cádiz",
	}
}

// --- Auth ---

func TestSignup(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res, err := f.auth.Signup(ctx, SignupInput{Username: " viajera ", Email: "Viajera@Example.com", Password: "secreto"})
	require.NoError(t, err)
	assert.Equal(t, "viajera", res.Username)
	assert.Equal(t, domain.RoleUser, res.Role)
	assert.Equal(t, 1, f.pool.commits)
	assert.Equal(t, []domain.EventType{domain.EventUserRegistered}, f.outbox.types())

	claims, err := f.jwt.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID.String(), claims.Subject)

	_, err = f.auth.Signup(ctx, SignupInput{Username: "otra", Email: "viajera@example.com", Password: "secreto"})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
}

func TestSignup_Validation(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name  string
		input SignupInput
	}{
		{"missing username", SignupInput{Email: "a@b.es", Password: "secreto"}},
		{"bad email", SignupInput{Username: "a", Email: "not-an-email", Password: "secreto"}},
		{"short password", SignupInput{Username: "a", Email: "a@b.es", Password: "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Signup(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, domain.CodeValidation))
		})
	}
	assert.Zero(t, f.pool.commits)
}

func TestSignup_BeginFailure(t *testing.T) {
	f := newFixture()
	f.pool.beginErr = errors.New("too many connections")

	_, err := f.auth.Signup(context.Background(), SignupInput{Username: "a", Email: "a@b.es", Password: "secreto"})
	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, SignupInput{Username: "viajera", Email: "viajera@example.com", Password: "secreto"})
	require.NoError(t, err)

	res, err := f.auth.Login(ctx, LoginInput{Email: "VIAJERA@example.com", Password: "secreto"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "viajera", res.User.Username)
	assert.NotEmpty(t, res.Token)

	_, err = f.auth.Login(ctx, LoginInput{Email: "viajera@example.com", Password: "wrong"}, "10.0.0.1")
	assert.True(t, domain.HasCode(err, domain.CodeUnauthorized))

	_, err = f.auth.Login(ctx, LoginInput{Email: "nadie@example.com", Password: "secreto"}, "10.0.0.1")
	assert.True(t, domain.HasCode(err, domain.CodeUnauthorized))

	_, err = f.auth.Login(ctx, LoginInput{}, "10.0.0.1")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.auth.Signup(ctx, SignupInput{Username: "v", Email: "v@example.com", Password: "secreto"})
	require.NoError(t, err)

	for i := 0; i < guard.MaxAttempts; i++ {
		_, err := f.auth.Login(ctx, LoginInput{Email: "v@example.com", Password: "nope"}, "10.0.0.1")
		require.True(t, domain.HasCode(err, domain.CodeUnauthorized))
	}

	_, err = f.auth.Login(ctx, LoginInput{Email: "v@example.com", Password: "secreto"}, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeAccountLocked))
}

func TestRenew_PicksUpRoleChange(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res, err := f.auth.Signup(ctx, SignupInput{Username: "mod", Email: "mod@example.com", Password: "secreto"})
	require.NoError(t, err)

	_, err = f.user.ChangeRole(ctx, res.UserID, "Moderator")
	require.NoError(t, err)

	token, err := f.auth.Renew(ctx, res.UserID)
	require.NoError(t, err)
	claims, err := f.jwt.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleModerator, claims.Role)

	_, err = f.auth.Renew(ctx, uuid.New())
	assert.True(t, domain.HasCode(err, domain.CodeUnauthorized))
}

// --- Destinations ---

func TestSuggest_CreatesPendingAndScores(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("viajera")

	in := playa()
	in.CategoryIDs = []int{1, 4}
	res, err := f.dest.Suggest(ctx, userID, in, nil, "")
	require.NoError(t, err)

	d := res.Destination
	assert.Equal(t, "playa-de-bolonia", d.Slug)
	assert.Equal(t, domain.StatusPending, d.Status)
	assert.True(t, d.IsPublic)
	require.NotNil(t, d.CreatedBy)
	assert.Equal(t, userID, *d.CreatedBy)
	assert.Equal(t, []int{1, 4}, f.destinations.categories[d.ID])

	assert.True(t, res.Gamification.Applied)
	assert.Equal(t, domain.PointsSubmission, res.Gamification.NewScore)
	assert.Equal(t, []domain.EventType{domain.EventDestinationCreated}, f.outbox.types())
}

func TestSuggest_UniqueSlugs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("viajera")

	var slugs []string
	for i := 0; i < 3; i++ {
		res, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
		require.NoError(t, err)
		slugs = append(slugs, res.Destination.Slug)
	}
	assert.Equal(t, []string{"playa-de-bolonia", "playa-de-bolonia-2", "playa-de-bolonia-3"}, slugs)

	res, err := f.dest.Suggest(ctx, userID, domain.DestinationInput{Name: "Málaga Centro", Description: "x", Province: "Málaga"}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "malaga-centro", res.Destination.Slug)
}

func TestSuggest_Validation(t *testing.T) {
	f := newFixture()
	in := playa()
	in.Province = "  "

	_, err := f.dest.Suggest(context.Background(), f.member("v"), in, nil, "")
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
	assert.Empty(t, f.destinations.rows)
}

func TestSuggest_WithUpload(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")

	in := playa()
	in.Images = []string{"https://example.com/existing.jpg"}
	up := &Upload{Filename: "dunas.PNG", Body: strings.NewReader("png"), Size: 3}
	res, err := f.dest.Suggest(ctx, userID, in, up, "")
	require.NoError(t, err)

	require.Len(t, f.images.keys, 1)
	assert.True(t, strings.HasPrefix(f.images.keys[0], "destinations/"))
	require.Len(t, res.Destination.Images, 2)
	assert.Equal(t, "https://example.com/existing.jpg", res.Destination.Images[0])
	assert.Equal(t, "https://cdn.example.com/"+f.images.keys[0], res.Destination.Images[1])

	_, err = f.dest.Suggest(ctx, userID, playa(), &Upload{Filename: "script.sh", Body: strings.NewReader("x"), Size: 1}, "")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	f.images.err = domain.ErrPersistence("image storage unavailable", nil)
	_, err = f.dest.Suggest(ctx, userID, playa(), &Upload{Filename: "a.jpg", Body: strings.NewReader("x"), Size: 1}, "")
	assert.True(t, domain.IsPersistence(err))
	assert.Len(t, f.destinations.rows, 1, "failed uploads create nothing")
}

func TestSuggest_IdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.users.add("late", "late@example.com", domain.RoleUser)

	// No account yet: scoring fails, nothing is written and the key is released.
	_, err := f.dest.Suggest(ctx, u.ID, playa(), nil, "req-1")
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, f.destinations.rows)
	assert.Empty(t, f.outbox.types())

	f.accounts.Put(domain.NewAccount(u.ID))
	res, err := f.dest.Suggest(ctx, u.ID, playa(), nil, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "playa-de-bolonia", res.Destination.Slug)

	mine, err := f.dest.ListByCreator(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1, "one destination per key")

	_, err = f.dest.Suggest(ctx, u.ID, playa(), nil, "req-1")
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	// Keys are per user.
	_, err = f.dest.Suggest(ctx, f.member("other"), playa(), nil, "req-1")
	assert.NoError(t, err)
}

func TestSuggest_ScoringFailureRollsBack(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")
	f.accounts.BeforeUpdate = func(context.Context, *domain.Account) error {
		return domain.ErrPersistence("account store unavailable", nil)
	}

	up := &Upload{Filename: "dunas.png", Body: strings.NewReader("png"), Size: 3}
	_, err := f.dest.Suggest(ctx, userID, playa(), up, "req-7")
	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))
	assert.Empty(t, f.destinations.rows)
	assert.Empty(t, f.outbox.types())
	require.Len(t, f.images.keys, 1)
	assert.Equal(t, f.images.keys, f.images.deleted, "the orphaned upload is removed")

	f.accounts.BeforeUpdate = nil
	res, err := f.dest.Suggest(ctx, userID, playa(), nil, "req-7")
	require.NoError(t, err)
	assert.Equal(t, "playa-de-bolonia", res.Destination.Slug)
	assert.Equal(t, domain.PointsSubmission, res.Gamification.NewScore)
	assert.Len(t, f.destinations.rows, 1)
}

func TestApprove(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")
	created, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
	require.NoError(t, err)
	id := created.Destination.ID

	res, err := f.dest.Approve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, res.Destination.Status)
	require.NotNil(t, res.Gamification)
	assert.Equal(t, domain.PointsSubmission+domain.PointsApproval, res.Gamification.NewScore)
	assert.Equal(t, 1, res.Gamification.Account.ApprovalCount)

	_, err = f.dest.Approve(ctx, id)
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))

	acc, err := f.accounts.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, acc.ApprovalCount, "a repeated approval scores nothing")

	_, err = f.dest.Approve(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
}

func TestApprove_ScoringFailureKeepsPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")
	created, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
	require.NoError(t, err)
	id := created.Destination.ID

	f.accounts.BeforeUpdate = func(context.Context, *domain.Account) error {
		return domain.ErrPersistence("account store unavailable", nil)
	}
	_, err = f.dest.Approve(ctx, id)
	require.Error(t, err)
	assert.True(t, domain.IsPersistence(err))

	d, err := f.destinations.FindByID(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, d.Status, "status change rolled back with the score")
	assert.Equal(t, []domain.EventType{domain.EventDestinationCreated}, f.outbox.types())

	// The retry is not a conflict and awards the approval exactly once.
	f.accounts.BeforeUpdate = nil
	res, err := f.dest.Approve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, res.Destination.Status)
	require.NotNil(t, res.Gamification)
	assert.Equal(t, 1, res.Gamification.Account.ApprovalCount)
	assert.Equal(t, domain.PointsSubmission+domain.PointsApproval, res.Gamification.NewScore)
}

func TestApprove_TenthApprovalAwardsMedal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")

	var last *ModerationResult
	for i := 0; i < domain.YearlyLimit; i++ {
		created, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
		require.NoError(t, err)
		last, err = f.dest.Approve(ctx, created.Destination.ID)
		require.NoError(t, err)
	}

	acc := last.Gamification.Account
	assert.Equal(t, domain.YearlyLimit, acc.ApprovalCount)
	assert.Equal(t, domain.YearlyLimit, acc.SubmissionCount)
	assert.Equal(t, domain.YearlyLimit*(domain.PointsSubmission+domain.PointsApproval), acc.TotalScore)
	assert.Len(t, acc.Medals, 2)
	require.NotNil(t, last.Gamification.MedalAwarded)
	assert.True(t, strings.HasPrefix(last.Gamification.MedalAwarded.Name, "🌟 Calidad"))
}

func TestReject_LeavesScoreAlone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")
	created, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
	require.NoError(t, err)

	res, err := f.dest.Reject(ctx, created.Destination.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, res.Destination.Status)
	assert.False(t, res.Gamification.Applied)
	assert.Equal(t, domain.PointsSubmission, res.Gamification.NewScore)

	_, err = f.dest.Reject(ctx, created.Destination.ID)
	assert.True(t, domain.IsConflict(err))

	// A rejected destination can still be approved later.
	res, err = f.dest.Approve(ctx, created.Destination.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, res.Destination.Status)

	assert.Equal(t, []domain.EventType{
		domain.EventDestinationCreated,
		domain.EventDestinationRejected,
		domain.EventDestinationApproved,
	}, f.outbox.types())
}

func TestModerate_CreatorGone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	d := &domain.Destination{ID: uuid.New(), Slug: "huerfano", Name: "Huérfano", Status: domain.StatusPending}
	require.NoError(t, f.destinations.Create(ctx, nil, d))

	res, err := f.dest.Approve(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Gamification)
	assert.Equal(t, domain.StatusActive, res.Destination.Status)
}

func TestModerate_CreatorAccountMissing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u := f.users.add("sin-cuenta", "sin@example.com", domain.RoleUser)
	d := &domain.Destination{ID: uuid.New(), Slug: "olvidado", Name: "Olvidado", Status: domain.StatusPending, CreatedBy: &u.ID}
	require.NoError(t, f.destinations.Create(ctx, nil, d))

	res, err := f.dest.Approve(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, res.Gamification)
	assert.Equal(t, domain.StatusActive, res.Destination.Status)
	assert.Equal(t, 1, f.pool.commits)
}

func TestListingsAndSearch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")

	var ids []uuid.UUID
	for _, name := range []string{"Alhambra", "Mezquita", "Playa de Bolonia", "Picos de Europa"} {
		in := playa()
		in.Name = name
		res, err := f.dest.Suggest(ctx, userID, in, nil, "")
		require.NoError(t, err)
		ids = append(ids, res.Destination.ID)
	}
	for _, id := range ids[:3] {
		_, err := f.dest.Approve(ctx, id)
		require.NoError(t, err)
	}

	active, err := f.dest.ListActive(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, active, 3)

	pending, err := f.dest.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Picos de Europa", pending[0].Name)

	all, err := f.dest.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := f.dest.ListByCreator(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, mine, 4)

	found, err := f.dest.Search(ctx, "CADIZ")
	require.NoError(t, err)
	assert.Len(t, found, 3, "only active destinations are searchable")

	found, err = f.dest.Search(ctx, "mezquíta")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Mezquita", found[0].Name)

	found, err = f.dest.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestGetDetail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("viajera")
	created, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
	require.NoError(t, err)
	id := created.Destination.ID

	_, err = f.rev.Create(ctx, userID, ReviewInput{TargetID: id, Comment: "Precioso", Stars: 5})
	require.NoError(t, err)

	detail, err := f.dest.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, detail.Author)
	assert.Equal(t, "viajera", *detail.Author)
	require.Len(t, detail.Reviews, 1)
	assert.Equal(t, 5, detail.Reviews[0].Stars)

	bySlug, err := f.dest.GetBySlug(ctx, "playa-de-bolonia")
	require.NoError(t, err)
	assert.Equal(t, id, bySlug.ID)

	_, err = f.dest.Get(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))
	_, err = f.dest.GetBySlug(ctx, "nope")
	assert.True(t, domain.IsNotFound(err))
}

func TestUpdateAndDelete_Ownership(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	owner := f.member("owner")
	stranger := f.member("stranger")
	created, err := f.dest.Suggest(ctx, owner, playa(), nil, "")
	require.NoError(t, err)
	id := created.Destination.ID

	in := playa()
	in.Name = "Bolonia"
	_, err = f.dest.Update(ctx, id, &stranger, in)
	assert.True(t, domain.IsNotFound(err))

	updated, err := f.dest.Update(ctx, id, &owner, in)
	require.NoError(t, err)
	assert.Equal(t, "Bolonia", updated.Name)

	in.Name = "Bolonia (admin)"
	in.CategoryIDs = []int{2}
	updated, err = f.dest.Update(ctx, id, nil, in)
	require.NoError(t, err)
	assert.Equal(t, "Bolonia (admin)", updated.Name)
	assert.Equal(t, []int{2}, f.destinations.categories[id])

	_, err = f.rev.Create(ctx, stranger, ReviewInput{TargetID: id, Stars: 3})
	require.NoError(t, err)

	assert.True(t, domain.IsNotFound(f.dest.Delete(ctx, id, &stranger)))
	require.NoError(t, f.dest.Delete(ctx, id, &owner))
	assert.Empty(t, f.destinations.rows)
	assert.Empty(t, f.reviews.rows, "reviews go with the destination")
	_, linked := f.destinations.categories[id]
	assert.False(t, linked)

	assert.True(t, domain.IsNotFound(f.dest.Delete(ctx, id, nil)))
}

// --- Reviews ---

func TestReviews(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	userID := f.member("v")
	created, err := f.dest.Suggest(ctx, userID, playa(), nil, "")
	require.NoError(t, err)
	target := created.Destination.ID

	tests := []struct {
		name  string
		input ReviewInput
		code  string
	}{
		{"zero stars", ReviewInput{TargetID: target, Stars: 0}, domain.CodeValidation},
		{"six stars", ReviewInput{TargetID: target, Stars: 6}, domain.CodeValidation},
		{"unknown target type", ReviewInput{TargetID: target, TargetType: "user", Stars: 4}, domain.CodeValidation},
		{"missing target id", ReviewInput{Stars: 4}, domain.CodeValidation},
		{"target does not exist", ReviewInput{TargetID: uuid.New(), Stars: 4}, domain.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.rev.Create(ctx, userID, tt.input)
			require.Error(t, err)
			assert.True(t, domain.HasCode(err, tt.code))
		})
	}

	r, err := f.rev.Create(ctx, userID, ReviewInput{TargetID: target, Comment: "  Genial  ", Stars: 4})
	require.NoError(t, err)
	assert.Equal(t, "Genial", r.Comment)
	assert.Equal(t, domain.TargetDestination, r.TargetType)

	mine, err := f.rev.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, f.rev.Delete(ctx, r.ID))
	assert.True(t, domain.IsNotFound(f.rev.Delete(ctx, r.ID)))
}

// --- Users ---

func TestUserService(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.member("Ángela")
	b := f.member("bruno")
	f.users.score[a] = 300
	f.users.score[b] = 120
	for i := 0; i < 5; i++ {
		f.member("extra")
	}

	top, err := f.user.Top(ctx)
	require.NoError(t, err)
	require.Len(t, top, TopUsersLimit)
	assert.Equal(t, a, top[0].ID)
	assert.Equal(t, b, top[1].ID)

	found, err := f.user.Search(ctx, "angela")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, a, found[0].ID)

	p, err := f.user.Profile(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 300, p.TotalScore)
	_, err = f.user.Profile(ctx, uuid.New())
	assert.True(t, domain.IsNotFound(err))

	acc, err := f.user.Gamification(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, a, acc.ID)

	_, err = f.user.UpdateProfile(ctx, a, ProfileInput{Username: "angela", Email: "bruno@example.com"})
	assert.True(t, domain.IsConflict(err))
	u, err := f.user.UpdateProfile(ctx, a, ProfileInput{Username: "angela", Email: "Angela@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "angela@example.com", u.Email)
	_, err = f.user.UpdateProfile(ctx, a, ProfileInput{Username: "", Email: "x@y.es"})
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	_, err = f.user.ChangeRole(ctx, a, "superuser")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
	u, err = f.user.ChangeRole(ctx, a, "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	_, err = f.user.ChangeRole(ctx, uuid.New(), "admin")
	assert.True(t, domain.IsNotFound(err))

	all, err := f.user.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	require.NoError(t, f.user.Delete(ctx, b))
	assert.True(t, domain.IsNotFound(f.user.Delete(ctx, b)))
}
