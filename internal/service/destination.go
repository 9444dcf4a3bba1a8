package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/gamification"
	"github.com/destinos/platform/internal/guard"
	"github.com/destinos/platform/internal/repository"
	"github.com/destinos/platform/internal/storage"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/jackc/pgx/v5"
)

// FeaturedLimit is how many destinations GET /destinations/featured returns.
const FeaturedLimit = 6

const maxSlugAttempts = 50

// ActionApplier scores a user action inside the caller's transaction.
// Satisfied by *gamification.Engine.
type ActionApplier interface {
	ApplyActionTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, kind domain.ActionKind) (*gamification.ActionResult, error)
}

// Upload is an image file attached to a suggestion.
type Upload struct {
	Filename string
	Body     io.Reader
	Size     int64
}

// SuggestResult is a created destination and the points it earned.
type SuggestResult struct {
	Destination  *domain.Destination        `json:"destination"`
	Gamification *gamification.ActionResult `json:"gamification"`
}

// ModerationResult is a moderated destination and the creator's new state.
type ModerationResult struct {
	Destination  *domain.Destination        `json:"destination"`
	Gamification *gamification.ActionResult `json:"gamification,omitempty"`
}

// DestinationService handles suggestions, moderation and destination reads.
type DestinationService struct {
	db           Pool
	destinations repository.DestinationRepository
	reviews      repository.ReviewRepository
	users        repository.UserRepository
	outbox       repository.OutboxRepository
	engine       ActionApplier
	images       storage.ImageStore
	idem         *guard.IdempotencyGuard
	logger       *slog.Logger
}

// NewDestinationService creates a new DestinationService. images may be nil,
// in which case uploads are rejected.
func NewDestinationService(
	db Pool,
	destinations repository.DestinationRepository,
	reviews repository.ReviewRepository,
	users repository.UserRepository,
	outbox repository.OutboxRepository,
	engine ActionApplier,
	images storage.ImageStore,
	idem *guard.IdempotencyGuard,
	logger *slog.Logger,
) *DestinationService {
	return &DestinationService{
		db:           db,
		destinations: destinations,
		reviews:      reviews,
		users:        users,
		outbox:       outbox,
		engine:       engine,
		images:       images,
		idem:         idem,
		logger:       logger,
	}
}

// Suggest creates a pending destination for userID and scores the submission
// in the same transaction. A non-empty idempotencyKey that was already used by
// the same user is rejected with a conflict. A failed call writes nothing and
// releases the key.
func (s *DestinationService) Suggest(ctx context.Context, userID uuid.UUID, in domain.DestinationInput, upload *Upload, idempotencyKey string) (*SuggestResult, error) {
	in = trimInput(in)
	if err := domain.ValidateDestinationInput(in); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	key := guard.ScopedKey(userID.String(), idempotencyKey)
	if s.idem != nil {
		if res := s.idem.Check(ctx, key); !res.Allowed {
			return nil, domain.ErrConflict(res.Reason)
		}
	}

	result, err := s.suggest(ctx, userID, in, upload)
	if err != nil && s.idem != nil {
		s.idem.Remove(key)
	}
	return result, err
}

func (s *DestinationService) suggest(ctx context.Context, userID uuid.UUID, in domain.DestinationInput, upload *Upload) (*SuggestResult, error) {
	images := append([]string{}, in.Images...)
	var uploadKey string
	if upload != nil {
		key, url, err := s.storeUpload(ctx, upload)
		if err != nil {
			return nil, err
		}
		uploadKey = key
		images = append(images, url)
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	creator := userID
	d := &domain.Destination{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Province:    in.Province,
		Images:      images,
		Status:      domain.StatusPending,
		CreatedBy:   &creator,
		IsPublic:    isPublic,
	}

	var res *gamification.ActionResult
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		sl, err := s.uniqueSlug(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		d.Slug = sl
		if err := s.destinations.Create(ctx, tx, d); err != nil {
			return domain.ErrPersistence("create destination", err)
		}
		if len(in.CategoryIDs) > 0 {
			if err := s.destinations.SetCategories(ctx, tx, d.ID, in.CategoryIDs); err != nil {
				return domain.ErrPersistence("set categories", err)
			}
		}
		if err := s.outbox.Insert(ctx, tx, domain.NewDestinationEvent(d, domain.EventDestinationCreated)); err != nil {
			return domain.ErrPersistence("insert outbox", err)
		}
		res, err = s.engine.ApplyActionTx(ctx, tx, userID, domain.ActionSubmission)
		if err != nil {
			s.logger.Error("score submission", "destination_id", d.ID, "user_id", userID, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		if uploadKey != "" {
			s.discardUpload(ctx, uploadKey)
		}
		return nil, err
	}

	if created, err := s.destinations.FindByID(ctx, s.db, d.ID); err == nil && created != nil {
		d = created
	}
	return &SuggestResult{Destination: d, Gamification: res}, nil
}

// storeUpload returns the object key and public URL of the stored image.
func (s *DestinationService) storeUpload(ctx context.Context, upload *Upload) (string, string, error) {
	if s.images == nil {
		return "", "", domain.ErrValidation("image uploads are disabled")
	}
	if upload.Size > storage.MaxImageBytes {
		return "", "", domain.ErrValidation(fmt.Sprintf("image exceeds %d bytes", storage.MaxImageBytes))
	}
	key, contentType, err := storage.ObjectKey("destinations", upload.Filename)
	if err != nil {
		return "", "", err
	}
	url, err := s.images.Put(ctx, key, upload.Body, upload.Size, contentType)
	if err != nil {
		return "", "", err
	}
	return key, url, nil
}

// discardUpload removes an image whose destination was never committed. It
// runs even when ctx is already cancelled.
func (s *DestinationService) discardUpload(ctx context.Context, key string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn("discard orphaned upload", "key", key, "error", err)
	}
}

// uniqueSlug derives a URL slug from name and appends -2, -3, ... until unused.
func (s *DestinationService) uniqueSlug(ctx context.Context, db repository.DBTX, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "destino"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		taken, err := s.destinations.SlugExists(ctx, db, candidate)
		if err != nil {
			return "", domain.ErrPersistence("check slug", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return base + "-" + uuid.New().String()[:8], nil
}

// ListActive returns active destinations, newest first. limit <= 0 means all.
func (s *DestinationService) ListActive(ctx context.Context, limit int) ([]domain.Destination, error) {
	status := domain.StatusActive
	return s.list(ctx, &status, limit)
}

// ListFeatured returns the newest active destinations.
func (s *DestinationService) ListFeatured(ctx context.Context) ([]domain.Destination, error) {
	return s.ListActive(ctx, FeaturedLimit)
}

// ListPending returns destinations awaiting moderation.
func (s *DestinationService) ListPending(ctx context.Context) ([]domain.Destination, error) {
	status := domain.StatusPending
	return s.list(ctx, &status, 0)
}

// ListAll returns every destination regardless of status.
func (s *DestinationService) ListAll(ctx context.Context) ([]domain.Destination, error) {
	return s.list(ctx, nil, 0)
}

func (s *DestinationService) list(ctx context.Context, status *domain.DestinationStatus, limit int) ([]domain.Destination, error) {
	out, err := s.destinations.List(ctx, s.db, status, limit)
	if err != nil {
		return nil, domain.ErrPersistence("list destinations", err)
	}
	return out, nil
}

// ListByCreator returns the destinations suggested by a user.
func (s *DestinationService) ListByCreator(ctx context.Context, userID uuid.UUID) ([]domain.Destination, error) {
	out, err := s.destinations.ListByCreator(ctx, s.db, userID)
	if err != nil {
		return nil, domain.ErrPersistence("list user destinations", err)
	}
	return out, nil
}

// Search matches active destinations by name or province, ignoring case and accents.
func (s *DestinationService) Search(ctx context.Context, term string) ([]domain.Destination, error) {
	key := domain.SearchKey(term)
	if key == "" {
		return []domain.Destination{}, nil
	}
	out, err := s.destinations.Search(ctx, s.db, key)
	if err != nil {
		return nil, domain.ErrPersistence("search destinations", err)
	}
	return out, nil
}

// Get returns a destination with its author and reviews.
func (s *DestinationService) Get(ctx context.Context, id uuid.UUID) (*domain.DestinationDetail, error) {
	d, err := s.destinations.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrPersistence("find destination", err)
	}
	if d == nil {
		return nil, domain.ErrNotFound("destination", id.String())
	}
	return s.detail(ctx, d)
}

// GetBySlug returns a destination by slug with its author and reviews.
func (s *DestinationService) GetBySlug(ctx context.Context, sl string) (*domain.DestinationDetail, error) {
	d, err := s.destinations.FindBySlug(ctx, s.db, sl)
	if err != nil {
		return nil, domain.ErrPersistence("find destination", err)
	}
	if d == nil {
		return nil, domain.ErrNotFound("destination", sl)
	}
	return s.detail(ctx, d)
}

func (s *DestinationService) detail(ctx context.Context, d *domain.Destination) (*domain.DestinationDetail, error) {
	out := &domain.DestinationDetail{Destination: *d}
	if d.CreatedBy != nil {
		author, err := s.users.FindByID(ctx, s.db, *d.CreatedBy)
		if err != nil {
			return nil, domain.ErrPersistence("find author", err)
		}
		if author != nil {
			out.Author = &author.Username
		}
	}
	reviews, err := s.reviews.ListByTarget(ctx, s.db, domain.TargetDestination, d.ID)
	if err != nil {
		return nil, domain.ErrPersistence("list reviews", err)
	}
	out.Reviews = reviews
	return out, nil
}

// Update writes the editable fields. A non-nil owner restricts the update to
// destinations created by that user; otherwise the destination is NotFound.
func (s *DestinationService) Update(ctx context.Context, id uuid.UUID, owner *uuid.UUID, in domain.DestinationInput) (*domain.Destination, error) {
	in = trimInput(in)
	if err := domain.ValidateDestinationInput(in); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if _, err := s.owned(ctx, id, owner); err != nil {
		return nil, err
	}

	var updated *domain.Destination
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		d, err := s.destinations.Update(ctx, tx, id, in)
		if err != nil {
			return domain.ErrPersistence("update destination", err)
		}
		if d == nil {
			return domain.ErrNotFound("destination", id.String())
		}
		if in.CategoryIDs != nil {
			if err := s.destinations.SetCategories(ctx, tx, id, in.CategoryIDs); err != nil {
				return domain.ErrPersistence("set categories", err)
			}
			if d, err = s.destinations.FindByID(ctx, tx, id); err != nil {
				return domain.ErrPersistence("reload destination", err)
			}
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a destination with its category links and reviews in one
// transaction. A non-nil owner restricts deletion to that user's destinations.
func (s *DestinationService) Delete(ctx context.Context, id uuid.UUID, owner *uuid.UUID) error {
	if _, err := s.owned(ctx, id, owner); err != nil {
		return err
	}
	return withTx(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.reviews.DeleteByTarget(ctx, tx, domain.TargetDestination, id); err != nil {
			return domain.ErrPersistence("delete reviews", err)
		}
		ok, err := s.destinations.Delete(ctx, tx, id)
		if err != nil {
			return domain.ErrPersistence("delete destination", err)
		}
		if !ok {
			return domain.ErrNotFound("destination", id.String())
		}
		return nil
	})
}

func (s *DestinationService) owned(ctx context.Context, id uuid.UUID, owner *uuid.UUID) (*domain.Destination, error) {
	d, err := s.destinations.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrPersistence("find destination", err)
	}
	if d == nil {
		return nil, domain.ErrNotFound("destination", id.String())
	}
	if owner != nil && (d.CreatedBy == nil || *d.CreatedBy != *owner) {
		return nil, domain.ErrNotFound("destination", id.String())
	}
	return d, nil
}

// Approve activates a pending or rejected destination and scores an approval
// for its creator in the same transaction. Approving an active destination is
// a conflict.
func (s *DestinationService) Approve(ctx context.Context, id uuid.UUID) (*ModerationResult, error) {
	return s.moderate(ctx, id, domain.StatusActive, domain.ActionApproval,
		domain.EventDestinationApproved, domain.StatusPending, domain.StatusRejected)
}

// Reject marks a pending or active destination as rejected. The creator's
// account is passed through the engine, which leaves it unchanged.
func (s *DestinationService) Reject(ctx context.Context, id uuid.UUID) (*ModerationResult, error) {
	return s.moderate(ctx, id, domain.StatusRejected, domain.ActionRejection,
		domain.EventDestinationRejected, domain.StatusPending, domain.StatusActive)
}

func (s *DestinationService) moderate(
	ctx context.Context,
	id uuid.UUID,
	to domain.DestinationStatus,
	kind domain.ActionKind,
	evt domain.EventType,
	from ...domain.DestinationStatus,
) (*ModerationResult, error) {
	var (
		d   *domain.Destination
		res *gamification.ActionResult
	)
	err := withTx(ctx, s.db, func(tx pgx.Tx) error {
		ok, err := s.destinations.TransitionStatus(ctx, tx, id, to, from...)
		if err != nil {
			return domain.ErrPersistence("update destination status", err)
		}
		current, err := s.destinations.FindByID(ctx, tx, id)
		if err != nil {
			return domain.ErrPersistence("find destination", err)
		}
		if current == nil {
			return domain.ErrNotFound("destination", id.String())
		}
		if !ok {
			return domain.ErrConflict(fmt.Sprintf("destination is already %s", current.Status))
		}
		d = current
		if err := s.outbox.Insert(ctx, tx, domain.NewDestinationEvent(d, evt)); err != nil {
			return domain.ErrPersistence("insert outbox", err)
		}
		if d.CreatedBy == nil {
			return nil
		}

		res, err = s.engine.ApplyActionTx(ctx, tx, *d.CreatedBy, kind)
		if domain.IsNotFound(err) {
			// The creator's account is gone; the status change stands.
			s.logger.Warn("creator account missing", "destination_id", d.ID, "user_id", *d.CreatedBy)
			return nil
		}
		if err != nil {
			s.logger.Error("score moderation", "destination_id", d.ID, "action", kind, "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &ModerationResult{Destination: d, Gamification: res}
	if res != nil {
		s.logger.Info("destination moderated", "destination_id", d.ID, "status", d.Status, "score", res.NewScore)
	}
	return out, nil
}

func trimInput(in domain.DestinationInput) domain.DestinationInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Province = strings.TrimSpace(in.Province)
	return in
}
