package handler

import (
	"net/http"

	"github.com/destinos/platform/internal/auth"
	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/service"
)

// UserHandler serves public profile, ranking and self-service endpoints.
type UserHandler struct {
	userSvc *service.UserService
	destSvc *service.DestinationService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userSvc *service.UserService, destSvc *service.DestinationService) *UserHandler {
	return &UserHandler{userSvc: userSvc, destSvc: destSvc}
}

// Top handles GET /users/top.
func (h *UserHandler) Top(w http.ResponseWriter, r *http.Request) {
	out, err := h.userSvc.Top(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Get handles GET /users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	out, err := h.userSvc.Profile(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Destinations handles GET /users/{id}/destinations.
func (h *UserHandler) Destinations(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	out, err := h.destSvc.ListByCreator(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Gamification handles GET /users/{id}/gamification.
func (h *UserHandler) Gamification(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	acc, err := h.userSvc.Gamification(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, acc)
}

// UpdateMe handles PUT /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("missing subject"))
		return
	}
	var input service.ProfileInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	u, err := h.userSvc.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, u)
}
