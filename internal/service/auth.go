package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/destinos/platform/internal/auth"
	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/guard"
	"github.com/destinos/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles signup, login and token renewal.
type AuthService struct {
	db     Pool
	users  repository.UserRepository
	outbox repository.OutboxRepository
	jwtMgr *auth.JWTManager
	logger *slog.Logger
	cost   int
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	db Pool,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	jwtMgr *auth.JWTManager,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		db:     db,
		users:  users,
		outbox: outbox,
		jwtMgr: jwtMgr,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

// SignupInput holds the signup request fields.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResult is returned on successful signup.
type SignupResult struct {
	Token    string    `json:"token"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// Signup creates a user with a zero gamification account.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*SignupResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := domain.ValidateUsername(input.Username); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	existing, err := s.users.FindByEmail(ctx, s.db, input.Email)
	if err != nil {
		return nil, domain.ErrPersistence("find user", err)
	}
	if existing != nil {
		return nil, domain.ErrConflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return nil, domain.ErrInternal("hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}
	err = withTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.users.Create(ctx, tx, user); err != nil {
			return domain.ErrPersistence("create user", err)
		}
		evt := domain.NewUserRegisteredEvent(user.ID, user.Username, user.Email)
		if err := s.outbox.Insert(ctx, tx, evt); err != nil {
			return domain.ErrPersistence("insert outbox", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.jwtMgr.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return &SignupResult{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult carries the token and the authenticated user.
type LoginResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Login authenticates a user and returns a JWT. Failed attempts are recorded
// per email and lock the email out after guard.MaxAttempts failures.
func (s *AuthService) Login(ctx context.Context, input LoginInput, clientIP string) (*LoginResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || input.Password == "" {
		return nil, domain.ErrValidation("email and password are required")
	}
	if err := guard.CheckLocked(ctx, s.db, input.Email); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, s.db, input.Email)
	if err != nil {
		return nil, domain.ErrPersistence("find user", err)
	}
	if user == nil {
		guard.RecordAttempt(ctx, s.db, input.Email, clientIP, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		guard.RecordAttempt(ctx, s.db, input.Email, clientIP, false)
		return nil, domain.ErrUnauthorized("invalid credentials")
	}
	guard.RecordAttempt(ctx, s.db, input.Email, clientIP, true)

	token, err := s.jwtMgr.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, domain.ErrInternal("generate token", err)
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Renew issues a fresh token for an already authenticated user. The role is
// reloaded so a role change takes effect on the next renewal.
func (s *AuthService) Renew(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.users.FindByID(ctx, s.db, userID)
	if err != nil {
		return "", domain.ErrPersistence("find user", err)
	}
	if user == nil {
		return "", domain.ErrUnauthorized("user no longer exists")
	}
	token, err := s.jwtMgr.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return "", domain.ErrInternal("generate token", err)
	}
	return token, nil
}
