package admin

import (
	"net/http"

	"github.com/destinos/platform/internal/handler"
	"github.com/destinos/platform/internal/service"
)

// ReviewAdminHandler handles review moderation.
type ReviewAdminHandler struct {
	reviewSvc *service.ReviewService
}

// NewReviewAdminHandler creates a new ReviewAdminHandler.
func NewReviewAdminHandler(reviewSvc *service.ReviewService) *ReviewAdminHandler {
	return &ReviewAdminHandler{reviewSvc: reviewSvc}
}

// Delete handles DELETE /admin/reviews/{id}.
func (h *ReviewAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.reviewSvc.Delete(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
