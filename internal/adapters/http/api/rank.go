package api

import (
	"context"
	"net/http"

	"github.com/okian/academy/pkg/logger"
)

const defaultRankCategory = "captures"

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, uuid, category string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps   RankDependencies
	logger logger.Logger
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies, l logger.Logger) *RankHandler {
	return &RankHandler{deps: deps, logger: l}
}

// HandleGetRank handles GET /players/{uuid}/rank?category= requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	id, err := playerID(r, op)
	if err != nil {
		fail(r.Context(), h.logger, w, err)
		return
	}
	category := r.URL.Query().Get("category")
	if category == "" {
		category = defaultRankCategory
	}
	entry, err := h.deps.Rank(r.Context(), id, category)
	if err != nil {
		fail(r.Context(), h.logger, w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
