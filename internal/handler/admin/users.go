package admin

import (
	"net/http"

	"github.com/destinos/platform/internal/handler"
	"github.com/destinos/platform/internal/service"
)

// UserAdminHandler handles user administration.
type UserAdminHandler struct {
	userSvc *service.UserService
}

// NewUserAdminHandler creates a new UserAdminHandler.
func NewUserAdminHandler(userSvc *service.UserService) *UserAdminHandler {
	return &UserAdminHandler{userSvc: userSvc}
}

// List handles GET /admin/users.
func (h *UserAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.userSvc.List(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// Get handles GET /admin/users/{id}.
func (h *UserAdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	out, err := h.userSvc.Profile(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// Update handles PUT /admin/users/{id}.
func (h *UserAdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input service.ProfileInput
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}
	out, err := h.userSvc.UpdateProfile(r.Context(), id, input)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// ChangeRole handles PATCH /admin/users/{id}/role.
func (h *UserAdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var input struct {
		Role string `json:"role"`
	}
	if err := handler.DecodeJSON(r, &input); err != nil {
		handler.RespondBadBody(w)
		return
	}
	out, err := h.userSvc.ChangeRole(r.Context(), id, input.Role)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /admin/users/{id}.
func (h *UserAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.URLParamUUID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.userSvc.Delete(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
