package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/academy/internal/domain/titles"
	"github.com/okian/academy/pkg/logger"
)

// TitleDependencies serves the title catalog and per-player title views.
type TitleDependencies interface {
	Catalog() []titles.Definition
	Titles(ctx context.Context, uuid string, limit int) (titles.Summary, error)
	TitleGallery(ctx context.Context, uuid string) ([]titles.Card, error)
	TitleProgress(ctx context.Context, uuid, id string) (titles.Progress, error)
}

type progressResponse struct {
	TitleID string `json:"titleId"`
	titles.Progress
	Earned bool `json:"earned"`
}

// TitlesHandler handles title requests.
type TitlesHandler struct {
	deps   TitleDependencies
	logger logger.Logger
}

// NewTitlesHandler creates a new titles handler.
func NewTitlesHandler(deps TitleDependencies, l logger.Logger) *TitlesHandler {
	return &TitlesHandler{deps: deps, logger: l}
}

// HandleCatalog handles GET /titles requests.
func (h *TitlesHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Catalog())
}

// HandleTitles handles GET /players/{uuid}/titles?limit=N requests. limit
// bounds the secondary titles; zero asks for the primary only.
func (h *TitlesHandler) HandleTitles(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_titles"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	limit := -1
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	sum, err := h.deps.Titles(r.Context(), id, limit)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleGallery handles GET /players/{uuid}/titles/gallery requests.
func (h *TitlesHandler) HandleGallery(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_gallery"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	cards, err := h.deps.TitleGallery(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// HandleProgress handles GET /players/{uuid}/titles/{id}/progress requests.
func (h *TitlesHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_title_progress"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	titleID := r.PathValue("id")
	prog, err := h.deps.TitleProgress(r.Context(), id, titleID)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, progressResponse{TitleID: titleID, Progress: prog, Earned: prog.Pct >= 100})
}
