package handler

import (
	"net/http"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/service"
)

// SearchHandler serves GET /search.
type SearchHandler struct {
	destSvc *service.DestinationService
	userSvc *service.UserService
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(destSvc *service.DestinationService, userSvc *service.UserService) *SearchHandler {
	return &SearchHandler{destSvc: destSvc, userSvc: userSvc}
}

// Search handles GET /search?type=users|destinations&value=term.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	value := q.Get("value")

	switch strings.ToLower(q.Get("type")) {
	case "users":
		out, err := h.userSvc.Search(r.Context(), value)
		if err != nil {
			RespondError(w, err)
			return
		}
		RespondJSON(w, http.StatusOK, out)
	case "destinations", "":
		out, err := h.destSvc.Search(r.Context(), value)
		if err != nil {
			RespondError(w, err)
			return
		}
		RespondJSON(w, http.StatusOK, out)
	default:
		RespondError(w, domain.ErrValidation("type must be users or destinations"))
	}
}
