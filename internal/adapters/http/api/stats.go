package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports live service counters.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves GET /stats. The dashboard polls it, so replies are
// never cached.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(p StatsProvider) *StatsHandler {
	return &StatsHandler{provider: p, now: time.Now}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", NewKind("api.stats", ErrUnavailable))
		return
	}
	out := maps.Clone(h.provider.GetStats())
	if out == nil {
		out = map[string]any{}
	}
	out["generatedAt"] = h.now().UTC().Format(time.RFC3339)
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, out)
}
