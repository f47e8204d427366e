package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/academy/internal/app"
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/pkg/logger"
)

// PlayerDependencies serves the player directory and profile reads.
type PlayerDependencies interface {
	Players(ctx context.Context, query string, page, limit int) (service.Page, error)
	Summary(ctx context.Context, uuid string) (service.PlayerSummary, error)
	Pokedex(ctx context.Context, uuid string) (model.PokedexStats, error)
	Party(ctx context.Context, uuid string) ([]model.Pokemon, error)
	PC(ctx context.Context, uuid string, f roster.Filter, page, limit int) (roster.Page, error)
}

// PlayersHandler handles player directory and profile requests.
type PlayersHandler struct {
	deps        PlayerDependencies
	defaultSize int
	maxSize     int
	logger      logger.Logger
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps PlayerDependencies, defaultSize, maxSize int, l logger.Logger) *PlayersHandler {
	return &PlayersHandler{deps: deps, defaultSize: defaultSize, maxSize: maxSize, logger: l}
}

// HandleList handles GET /players?q=&page=&limit= requests.
func (h *PlayersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_players"
	page, ok := intQuery(r, "page", 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit, ok := intQuery(r, "limit", h.defaultSize)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit = min(limit, h.maxSize)

	out, err := h.deps.Players(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")), page, limit)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSummary handles GET /players/{uuid}/summary requests.
func (h *PlayersHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_summary"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	sum, err := h.deps.Summary(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandlePokedex handles GET /players/{uuid}/pokedex requests.
func (h *PlayersHandler) HandlePokedex(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_pokedex"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	dex, err := h.deps.Pokedex(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, dex)
}

// HandleParty handles GET /players/{uuid}/party requests.
func (h *PlayersHandler) HandleParty(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_party"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	party, err := h.deps.Party(r.Context(), id)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, party)
}

// HandlePC handles GET /players/{uuid}/pc?page=&limit=&shiny=&species= requests.
func (h *PlayersHandler) HandlePC(w http.ResponseWriter, r *http.Request) {
	const op = "api.player_pc"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	page, ok := intQuery(r, "page", 1)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit, ok := intQuery(r, "limit", roster.DefaultPCLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	limit = min(limit, h.maxSize)

	q := r.URL.Query()
	f := roster.Filter{Species: strings.TrimSpace(q.Get("species"))}
	if raw := q.Get("shiny"); raw != "" {
		shiny, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		f.Shiny = &shiny
	}

	out, err := h.deps.PC(r.Context(), id, f, page, limit)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}
