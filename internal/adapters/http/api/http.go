// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/academy/internal/adapters/repository"
	service "github.com/okian/academy/internal/app"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/internal/domain/types"
	"github.com/okian/academy/pkg/logger"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	defaultPageSize         = 20
	maxPageSize             = 100
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SnapshotDependencies
	LeaderboardDependencies
	RankDependencies
	PlayerDependencies
	TitleDependencies
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	snapshotsHandler   *SnapshotsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	playersHandler     *PlayersHandler
	titlesHandler      *TitlesHandler

	maxLimit     int
	defaultLimit int
	maxPageSize  int
	corsOrigins  []string
	logger       logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		maxLimit:     maxLeaderboardLimit,
		defaultLimit: defaultLeaderboardLimit,
		maxPageSize:  maxPageSize,
		corsOrigins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}

	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(statsProvider)
	s.snapshotsHandler = NewSnapshotsHandler(deps, s.logger)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.defaultLimit, s.maxLimit, s.logger)
	s.rankHandler = NewRankHandler(deps, s.logger)
	s.playersHandler = NewPlayersHandler(deps, min(defaultPageSize, s.maxPageSize), s.maxPageSize, s.logger)
	s.titlesHandler = NewTitlesHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /titles", MetricsMiddleware(s.titlesHandler.HandleCatalog, "titles"))
	mux.HandleFunc("GET /leaderboards/{category}", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboards"))

	mux.HandleFunc("GET /players", MetricsMiddleware(s.playersHandler.HandleList, "players"))
	mux.HandleFunc("GET /players/{uuid}/summary", MetricsMiddleware(s.playersHandler.HandleSummary, "player_summary"))
	mux.HandleFunc("GET /players/{uuid}/pokedex", MetricsMiddleware(s.playersHandler.HandlePokedex, "player_pokedex"))
	mux.HandleFunc("GET /players/{uuid}/party", MetricsMiddleware(s.playersHandler.HandleParty, "player_party"))
	mux.HandleFunc("GET /players/{uuid}/pc", MetricsMiddleware(s.playersHandler.HandlePC, "player_pc"))
	mux.HandleFunc("GET /players/{uuid}/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "player_rank"))
	mux.HandleFunc("GET /players/{uuid}/titles", MetricsMiddleware(s.titlesHandler.HandleTitles, "player_titles"))
	mux.HandleFunc("GET /players/{uuid}/titles/gallery", MetricsMiddleware(s.titlesHandler.HandleGallery, "player_gallery"))
	mux.HandleFunc("GET /players/{uuid}/titles/{id}/progress", MetricsMiddleware(s.titlesHandler.HandleProgress, "player_title_progress"))
	mux.HandleFunc("POST /players/{uuid}/snapshots", MetricsMiddleware(s.snapshotsHandler.HandlePostSnapshot, "snapshots"))
}

// Handler wraps mux with the configured CORS policy.
func (s *Server) Handler(mux *http.ServeMux) http.Handler {
	return WithCORS(mux, s.corsOrigins)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an error kind to an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidUUID):
		return http.StatusBadRequest, "invalid_uuid"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidSnapshot),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, roster.ErrInvalidPage):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, scoring.ErrUnknownCategory):
		return http.StatusBadRequest, "unknown_category"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrTitleNotFound):
		return http.StatusNotFound, "title_not_found"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}

// fail writes err with the status its kind maps to. Server errors are
// logged; their details are not returned to the client.
func fail(ctx context.Context, l logger.Logger, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.Error(err))
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

// playerID validates the {uuid} path value and returns its canonical form.
func playerID(r *http.Request, op string) (string, error) {
	raw := strings.TrimSpace(r.PathValue("uuid"))
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", WrapKind(op, ErrInvalidUUID, err)
	}
	return id.String(), nil
}

// intQuery reads a positive integer query parameter. Missing yields def.
func intQuery(r *http.Request, name string, def int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
