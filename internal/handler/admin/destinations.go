package admin

import (
	"context"
	"net/http"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/handler"
	"github.com/destinos/platform/internal/service"
	"github.com/google/uuid"
)

type moderation func(ctx context.Context, id uuid.UUID) (*service.ModerationResult, error)

// DestinationAdminHandler handles destination moderation.
type DestinationAdminHandler struct {
	destSvc *service.DestinationService
}

// NewDestinationAdminHandler creates a new DestinationAdminHandler.
func NewDestinationAdminHandler(destSvc *service.DestinationService) *DestinationAdminHandler {
	return &DestinationAdminHandler{destSvc: destSvc}
}

// ListAll handles GET /admin/destinations/all.
func (h *DestinationAdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	out, err := h.destSvc.ListAll(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// ListPending handles GET /admin/destinations/pending.
func (h *DestinationAdminHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	out, err := h.destSvc.ListPending(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// Approve handles PATCH /admin/destinations/{id}/approve.
func (h *DestinationAdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.destSvc.Approve)
}

// Reject handles PATCH /admin/destinations/{id}/reject.
func (h *DestinationAdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.destSvc.Reject)
}

func (h *DestinationAdminHandler) moderate(w http.ResponseWriter, r *http.Request, action moderation) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	out, err := action(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// Update handles PUT /admin/destinations/{id}.
func (h *DestinationAdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input domain.DestinationInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}
	out, err := h.destSvc.Update(r.Context(), id, nil, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /admin/destinations/{id}.
func (h *DestinationAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.destSvc.Delete(r.Context(), id, nil); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
