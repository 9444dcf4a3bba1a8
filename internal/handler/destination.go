package handler

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/destinos/platform/internal/auth"
	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/service"
	"github.com/destinos/platform/internal/storage"
	"github.com/go-chi/chi/v5"
)

// IdempotencyHeader carries the client key that deduplicates suggestions.
const IdempotencyHeader = "Idempotency-Key"

const maxMultipartMemory = 1 << 20

// DestinationHandler serves the public and owner destination endpoints.
type DestinationHandler struct {
	destSvc *service.DestinationService
}

// NewDestinationHandler creates a new DestinationHandler.
func NewDestinationHandler(destSvc *service.DestinationService) *DestinationHandler {
	return &DestinationHandler{destSvc: destSvc}
}

// Suggest handles POST /destinations. Accepts JSON or multipart/form-data with
// an optional "file" image part.
func (h *DestinationHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("missing subject"))
		return
	}

	input, upload, err := ParseSuggestion(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	if upload != nil {
		if closer, ok := upload.Body.(interface{ Close() error }); ok {
			defer closer.Close()
		}
	}

	result, err := h.destSvc.Suggest(r.Context(), userID, input, upload, r.Header.Get(IdempotencyHeader))
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, result)
}

// ParseSuggestion reads a destination from a JSON or multipart request.
func ParseSuggestion(r *http.Request) (domain.DestinationInput, *service.Upload, error) {
	var in domain.DestinationInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := DecodeJSON(r, &in); err != nil {
			return in, nil, domain.ErrValidation("invalid request body")
		}
		return in, nil, nil
	}

	r.Body = http.MaxBytesReader(nil, r.Body, storage.MaxImageBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return in, nil, domain.ErrValidation("invalid multipart body")
	}
	form := r.MultipartForm

	in.Name = r.FormValue("name")
	in.Description = r.FormValue("description")
	in.Province = r.FormValue("province")
	in.Images = splitValues(form.Value["images"])
	if raw := r.FormValue("is_public"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return in, nil, domain.ErrValidation("is_public must be a boolean")
		}
		in.IsPublic = &v
	}
	for _, raw := range splitValues(form.Value["category_ids"]) {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return in, nil, domain.ErrValidation("category_ids must be integers")
		}
		in.CategoryIDs = append(in.CategoryIDs, id)
	}

	files := form.File["file"]
	if len(files) == 0 {
		return in, nil, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return in, nil, domain.ErrValidation("unreadable file part")
	}
	return in, &service.Upload{Filename: fh.Filename, Body: f, Size: fh.Size}, nil
}

// splitValues flattens repeated and comma separated form values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// List handles GET /destinations.
func (h *DestinationHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.destSvc.ListActive(r.Context(), 0)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Featured handles GET /destinations/featured.
func (h *DestinationHandler) Featured(w http.ResponseWriter, r *http.Request) {
	out, err := h.destSvc.ListFeatured(r.Context())
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Get handles GET /destinations/{id}.
func (h *DestinationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	out, err := h.destSvc.Get(r.Context(), id)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// GetBySlug handles GET /destinations/slug/{slug}.
func (h *DestinationHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	out, err := h.destSvc.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Update handles PUT /destinations/{id} for the destination's creator.
func (h *DestinationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("missing subject"))
		return
	}
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}
	var input domain.DestinationInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondBadBody(w)
		return
	}

	out, err := h.destSvc.Update(r.Context(), id, &userID, input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /destinations/{id} for the destination's creator.
func (h *DestinationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		RespondError(w, domain.ErrUnauthorized("missing subject"))
		return
	}
	id, err := URLParamUUID(r, "id")
	if err != nil {
		RespondError(w, err)
		return
	}

	if err := h.destSvc.Delete(r.Context(), id, &userID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
