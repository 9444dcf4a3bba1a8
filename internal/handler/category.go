package handler

import (
	"net/http"

	"github.com/destinos/platform/internal/service"
)

// CategoryHandler serves GET /categories.
type CategoryHandler struct {
	categorySvc *service.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categorySvc *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categorySvc: categorySvc}
}

// List handles GET /categories and GET /admin/categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.categorySvc.List(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}
