package service

import (
	"context"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
	"github.com/google/uuid"
)

// TopUsersLimit is the size of the public ranking.
const TopUsersLimit = 5

// AccountReader reads a gamification account. Satisfied by *gamification.Engine.
type AccountReader interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
}

// UserService handles profiles, rankings and user administration.
type UserService struct {
	db       repository.DBTX
	users    repository.UserRepository
	accounts AccountReader
}

// NewUserService creates a new UserService.
func NewUserService(db repository.DBTX, users repository.UserRepository, accounts AccountReader) *UserService {
	return &UserService{db: db, users: users, accounts: accounts}
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Top returns the highest scoring users.
func (s *UserService) Top(ctx context.Context) ([]domain.UserSummary, error) {
	out, err := s.users.Top(ctx, s.db, TopUsersLimit)
	if err != nil {
		return nil, domain.ErrPersistence("top users", err)
	}
	return out, nil
}

// Search matches users by username, ignoring case and accents.
func (s *UserService) Search(ctx context.Context, term string) ([]domain.UserSummary, error) {
	key := domain.SearchKey(term)
	if key == "" {
		return []domain.UserSummary{}, nil
	}
	out, err := s.users.Search(ctx, s.db, key)
	if err != nil {
		return nil, domain.ErrPersistence("search users", err)
	}
	return out, nil
}

// List returns every user for administration.
func (s *UserService) List(ctx context.Context) ([]domain.UserSummary, error) {
	out, err := s.users.List(ctx, s.db)
	if err != nil {
		return nil, domain.ErrPersistence("list users", err)
	}
	return out, nil
}

// Profile returns a user with score, counters and medals.
func (s *UserService) Profile(ctx context.Context, id uuid.UUID) (*domain.UserProfile, error) {
	p, err := s.users.Profile(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrPersistence("find profile", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("user", id.String())
	}
	return p, nil
}

// Gamification returns the account snapshot of a user.
func (s *UserService) Gamification(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.accounts.Snapshot(ctx, id)
}

// UpdateProfile changes username and email. The email must not belong to
// another user.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := domain.ValidateUsername(in.Username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateEmail(in.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	other, err := s.users.FindByEmail(ctx, s.db, in.Email)
	if err != nil {
		return nil, domain.ErrPersistence("find user", err)
	}
	if other != nil && other.ID != id {
		return nil, domain.ErrConflict("email already registered")
	}

	u, err := s.users.UpdateProfile(ctx, s.db, id, in.Username, in.Email)
	if err != nil {
		return nil, domain.ErrPersistence("update user", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound("user", id.String())
	}
	return u, nil
}

// ChangeRole sets the role of a user.
func (s *UserService) ChangeRole(ctx context.Context, id uuid.UUID, role string) (*domain.User, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !domain.ValidRole(role) {
		return nil, domain.ErrValidation("role must be one of user, moderator, admin")
	}
	u, err := s.users.UpdateRole(ctx, s.db, id, role)
	if err != nil {
		return nil, domain.ErrPersistence("update role", err)
	}
	if u == nil {
		return nil, domain.ErrNotFound("user", id.String())
	}
	return u, nil
}

// Delete removes a user. Their destinations stay with no creator.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.users.Delete(ctx, s.db, id)
	if err != nil {
		return domain.ErrPersistence("delete user", err)
	}
	if !ok {
		return domain.ErrNotFound("user", id.String())
	}
	return nil
}
