package service

import (
	"context"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/repository"
	"github.com/google/uuid"
)

// ReviewService handles destination reviews.
type ReviewService struct {
	db           repository.DBTX
	reviews      repository.ReviewRepository
	destinations repository.DestinationRepository
}

// NewReviewService creates a new ReviewService.
func NewReviewService(db repository.DBTX, reviews repository.ReviewRepository, destinations repository.DestinationRepository) *ReviewService {
	return &ReviewService{db: db, reviews: reviews, destinations: destinations}
}

// ReviewInput holds the review request fields.
type ReviewInput struct {
	TargetID   uuid.UUID `json:"target_id"`
	TargetType string    `json:"target_type"`
	Comment    string    `json:"comment"`
	Stars      int       `json:"stars"`
}

// Create stores a review by userID. The target must exist.
func (s *ReviewService) Create(ctx context.Context, userID uuid.UUID, in ReviewInput) (*domain.Review, error) {
	if in.TargetType == "" {
		in.TargetType = domain.TargetDestination
	}
	if in.TargetType != domain.TargetDestination {
		return nil, domain.ErrValidation("target_type must be " + domain.TargetDestination)
	}
	if in.TargetID == uuid.Nil {
		return nil, domain.ErrValidation("target_id is required")
	}
	if err := domain.ValidateStars(in.Stars); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	target, err := s.destinations.FindByID(ctx, s.db, in.TargetID)
	if err != nil {
		return nil, domain.ErrPersistence("find destination", err)
	}
	if target == nil {
		return nil, domain.ErrNotFound("destination", in.TargetID.String())
	}

	review := &domain.Review{
		UserID:     userID,
		TargetID:   in.TargetID,
		TargetType: in.TargetType,
		Comment:    strings.TrimSpace(in.Comment),
		Stars:      in.Stars,
	}
	if err := s.reviews.Create(ctx, s.db, review); err != nil {
		return nil, domain.ErrPersistence("create review", err)
	}
	return review, nil
}

// ListByUser returns the reviews a user wrote.
func (s *ReviewService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Review, error) {
	out, err := s.reviews.ListByUser(ctx, s.db, userID)
	if err != nil {
		return nil, domain.ErrPersistence("list reviews", err)
	}
	return out, nil
}

// Delete removes a review.
func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID) error {
	ok, err := s.reviews.Delete(ctx, s.db, id)
	if err != nil {
		return domain.ErrPersistence("delete review", err)
	}
	if !ok {
		return domain.ErrNotFound("review", id.String())
	}
	return nil
}
