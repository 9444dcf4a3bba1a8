package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/destinos/platform/internal/gamification"
	"github.com/destinos/platform/internal/handler"
)

// SeasonResetter is satisfied by *gamification.SeasonCoordinator.
type SeasonResetter interface {
	ResetSeason(ctx context.Context) (*gamification.ResetResult, error)
}

// SeasonHandler exposes the manual season reset.
type SeasonHandler struct {
	resetter SeasonResetter
	logger   *slog.Logger
}

// NewSeasonHandler creates a new SeasonHandler.
func NewSeasonHandler(resetter SeasonResetter, logger *slog.Logger) *SeasonHandler {
	return &SeasonHandler{resetter: resetter, logger: logger}
}

// Reset handles POST /admin/season/reset.
func (h *SeasonHandler) Reset(w http.ResponseWriter, r *http.Request) {
	res, err := h.resetter.ResetSeason(r.Context())
	if err != nil {
		if res != nil {
			h.logger.Error("season reset incomplete",
				"accounts_updated", res.AccountsUpdated,
				"accounts_failed", res.AccountsFailed,
				"error", err,
			)
		}
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, res)
}
