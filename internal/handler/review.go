package handler

import (
	"net/http"

	"github.com/destinos/platform/internal/auth"
	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/service"
)

// ReviewHandler serves review endpoints.
type ReviewHandler struct {
	reviewSvc *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewSvc *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: reviewSvc}
}

// Create handles POST /reviews.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("missing subject"))
		return
	}
	var input service.ReviewInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	review, err := h.reviewSvc.Create(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, review)
}

// ListByUser handles GET /users/{id}/reviews.
func (h *ReviewHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	out, err := h.reviewSvc.ListByUser(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}
