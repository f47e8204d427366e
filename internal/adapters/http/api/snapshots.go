package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/pkg/logger"
)

const maxSnapshotBytes = 4 << 20

// SnapshotDependencies accepts player snapshots for async processing.
type SnapshotDependencies interface {
	// Submit dedupes and queues a snapshot. duplicate reports an already
	// seen snapshot id.
	Submit(ctx context.Context, snap model.Snapshot) (duplicate bool, err error)
}

// snapshotRequest mirrors the OpenAPI schema for POST /players/{uuid}/snapshots.
type snapshotRequest struct {
	SnapshotID  string            `json:"snapshot_id"`
	Username    string            `json:"username"`
	Advancement model.Advancement `json:"advancement"`
	Species     []string          `json:"species"`
	Party       []model.Pokemon   `json:"party"`
	PC          []model.Pokemon   `json:"pc"`
	TS          string            `json:"ts"`
}

func (s *snapshotRequest) validate() (time.Time, error) {
	a := s.Advancement
	for name, v := range map[string]int{
		"totalCaptureCount":       a.TotalCaptureCount,
		"totalShinyCaptureCount":  a.TotalShinyCaptureCount,
		"totalEggsCollected":      a.TotalEggsCollected,
		"totalEggsHatched":        a.TotalEggsHatched,
		"totalEvolvedCount":       a.TotalEvolvedCount,
		"totalBattleVictoryCount": a.TotalBattleVictoryCount,
	} {
		if v < 0 {
			return time.Time{}, fmt.Errorf("negative %s", name)
		}
	}
	for i, p := range s.Party {
		if err := checkPokemon(p); err != nil {
			return time.Time{}, fmt.Errorf("party[%d]: %w", i, err)
		}
		if p.Slot >= roster.PartySize {
			return time.Time{}, fmt.Errorf("party[%d]: slotIndex %d out of range", i, p.Slot)
		}
	}
	for i, p := range s.PC {
		if err := checkPokemon(p); err != nil {
			return time.Time{}, fmt.Errorf("pc[%d]: %w", i, err)
		}
		if p.Box == nil || *p.Box < 0 {
			return time.Time{}, fmt.Errorf("pc[%d]: missing or negative boxIndex", i)
		}
	}
	if strings.TrimSpace(s.TS) == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339, s.TS)
	if err != nil {
		return time.Time{}, errors.New("invalid ts; must be RFC3339")
	}
	return ts.UTC(), nil
}

func checkPokemon(p model.Pokemon) error {
	switch {
	case strings.TrimSpace(p.Species) == "":
		return errors.New("empty species")
	case p.Level < 0:
		return errors.New("negative level")
	case p.Slot < 0:
		return errors.New("negative slotIndex")
	}
	return nil
}

type ackResponse struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	SnapshotID string `json:"snapshot_id,omitempty"`
}

// SnapshotsHandler handles snapshot ingestion.
type SnapshotsHandler struct {
	deps   SnapshotDependencies
	logger logger.Logger
}

// NewSnapshotsHandler creates a new snapshots handler.
func NewSnapshotsHandler(deps SnapshotDependencies, l logger.Logger) *SnapshotsHandler {
	return &SnapshotsHandler{deps: deps, logger: l}
}

// HandlePostSnapshot handles POST /players/{uuid}/snapshots requests.
func (h *SnapshotsHandler) HandlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_snapshot"
	ctx := r.Context()

	id, err := playerID(r, op)
	if err != nil {
		fail(ctx, h.logger, w, err)
		return
	}

	var req snapshotRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSnapshotBytes))
	if err := dec.Decode(&req); err != nil {
		fail(ctx, h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}
	ts, err := req.validate()
	if err != nil {
		fail(ctx, h.logger, w, WrapKind(op, ErrBadRequest, err))
		return
	}

	snap := model.Snapshot{
		SnapshotID:  strings.TrimSpace(req.SnapshotID),
		UUID:        id,
		Username:    strings.TrimSpace(req.Username),
		Advancement: req.Advancement,
		Species:     req.Species,
		Party:       req.Party,
		PC:          req.PC,
		TS:          ts,
	}
	duplicate, err := h.deps.Submit(ctx, snap)
	if err != nil {
		fail(ctx, h.logger, w, Wrap(op, err))
		return
	}
	if duplicate {
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "duplicate", Duplicate: true, SnapshotID: snap.SnapshotID})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", SnapshotID: snap.SnapshotID})
}
