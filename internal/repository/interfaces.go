package repository

import (
	"context"

	"github.com/destinos/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// UserRepository provides access to the identity columns of users.
type UserRepository interface {
	// FindByID returns a user by ID, or nil if not found.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.User, error)

	// FindByEmail returns a user by email (case-insensitive), or nil if not found.
	FindByEmail(ctx context.Context, db DBTX, email string) (*domain.User, error)

	// Create inserts a new user with a zero gamification account.
	Create(ctx context.Context, db DBTX, user *domain.User) error

	// UpdateProfile changes username and email. Returns nil if the user is gone.
	UpdateProfile(ctx context.Context, db DBTX, id uuid.UUID, username, email string) (*domain.User, error)

	// UpdateRole changes the role. Returns nil if the user is gone.
	UpdateRole(ctx context.Context, db DBTX, id uuid.UUID, role string) (*domain.User, error)

	// Delete removes a user and reports whether a row was deleted.
	Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)

	// List returns all users, newest first.
	List(ctx context.Context, db DBTX) ([]domain.UserSummary, error)

	// Top returns the highest scoring users.
	Top(ctx context.Context, db DBTX, limit int) ([]domain.UserSummary, error)

	// Search matches the folded username against a folded term.
	Search(ctx context.Context, db DBTX, key string) ([]domain.UserSummary, error)

	// Profile returns a user together with the gamification columns.
	Profile(ctx context.Context, db DBTX, id uuid.UUID) (*domain.UserProfile, error)
}

// DestinationRepository provides access to destinations and their category links.
type DestinationRepository interface {
	// Create inserts a destination. Slug must already be unique.
	Create(ctx context.Context, db DBTX, d *domain.Destination) error

	// SlugExists reports whether a slug is taken.
	SlugExists(ctx context.Context, db DBTX, slug string) (bool, error)

	// FindByID returns a destination with its category names, or nil.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Destination, error)

	// FindBySlug returns a destination with its category names, or nil.
	FindBySlug(ctx context.Context, db DBTX, slug string) (*domain.Destination, error)

	// List returns destinations, newest first. A nil status lists all of them;
	// limit <= 0 means no limit.
	List(ctx context.Context, db DBTX, status *domain.DestinationStatus, limit int) ([]domain.Destination, error)

	// ListByCreator returns every destination suggested by a user.
	ListByCreator(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.Destination, error)

	// Search matches active destinations by folded name or province.
	Search(ctx context.Context, db DBTX, key string) ([]domain.Destination, error)

	// Update writes the editable fields. Returns nil if the row is gone.
	Update(ctx context.Context, db DBTX, id uuid.UUID, in domain.DestinationInput) (*domain.Destination, error)

	// TransitionStatus moves a destination to status only when its current status
	// is one of from. Returns false when no row matched.
	TransitionStatus(ctx context.Context, db DBTX, id uuid.UUID, status domain.DestinationStatus, from ...domain.DestinationStatus) (bool, error)

	// SetCategories replaces the category links of a destination.
	SetCategories(ctx context.Context, db DBTX, id uuid.UUID, categoryIDs []int) error

	// Delete removes the destination and its category links.
	Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)
}

// ReviewRepository provides access to reviews.
type ReviewRepository interface {
	// Create inserts a review and fills its ID and CreatedAt.
	Create(ctx context.Context, db DBTX, review *domain.Review) error

	// ListByTarget returns the reviews of a target with author usernames.
	ListByTarget(ctx context.Context, db DBTX, targetType string, targetID uuid.UUID) ([]domain.Review, error)

	// ListByUser returns the reviews written by a user with target names.
	ListByUser(ctx context.Context, db DBTX, userID uuid.UUID) ([]domain.Review, error)

	// DeleteByTarget removes every review of a target.
	DeleteByTarget(ctx context.Context, db DBTX, targetType string, targetID uuid.UUID) error

	// Delete removes one review and reports whether it existed.
	Delete(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)
}

// CategoryRepository provides access to categories.
type CategoryRepository interface {
	// List returns all categories sorted by name.
	List(ctx context.Context, db DBTX) ([]domain.Category, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the state change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublishedRows returns unpublished events in insertion order.
	FetchUnpublishedRows(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error)

	// MarkPublished stamps publishedAt on the given rows.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
