// Package simulate drives a running tracker with generated trainers and
// checks that what it serves matches a local evaluation of the same data.
package simulate

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/pokedex"
	"github.com/okian/academy/internal/domain/roster"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL            string        // Base URL of the service
	Players            int           // Number of trainers to generate
	SnapshotsPerPlayer int           // Snapshots per trainer, oldest first
	Workers            int           // Number of concurrent HTTP workers
	Rate               float64       // Submissions per second; 0 is unlimited
	Timeout            time.Duration // HTTP request timeout
	Settle             time.Duration // How long to wait for the workers to catch up
	TopN               int           // Leaderboard size to check
	SecondaryLimit     int           // Secondary titles to compare
	TotalSpecies       int           // Pokédex denominator the server uses
	Seed               uint64        // Seed for the stat generator; 0 picks one
	OutputFile         string        // Optional JSON dump of the generated trainers
	Verbose            bool
}

// DefaultConfig returns the settings used when no flags are given.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "http://localhost:9080",
		Players:            200,
		SnapshotsPerPlayer: 3,
		Workers:            runtime.NumCPU() * 2,
		Timeout:            10 * time.Second,
		Settle:             30 * time.Second,
		TopN:               25,
		SecondaryLimit:     3,
		TotalSpecies:       pokedex.DefaultTotalSpecies,
	}
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidInput)
	case c.Players < 1:
		return fmt.Errorf("%w: players must be positive", ErrInvalidInput)
	case c.SnapshotsPerPlayer < 1:
		return fmt.Errorf("%w: snapshots per player must be positive", ErrInvalidInput)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidInput)
	case c.Rate < 0:
		return fmt.Errorf("%w: rate must not be negative", ErrInvalidInput)
	case c.TopN < 1:
		return fmt.Errorf("%w: top must be positive", ErrInvalidInput)
	case c.SecondaryLimit < 0:
		return fmt.Errorf("%w: secondary limit must not be negative", ErrInvalidInput)
	case c.TotalSpecies < 1:
		return fmt.Errorf("%w: total species must be positive", ErrInvalidInput)
	}
	return nil
}

// Trainer is one generated player and the snapshots sent for it.
type Trainer struct {
	UUID      string            `json:"uuid"`
	Username  string            `json:"username"`
	Snapshots []SnapshotRequest `json:"snapshots"`
}

// Final returns the player the server should hold once every snapshot is applied.
func (t *Trainer) Final(totalSpecies int) model.Player {
	last := t.Snapshots[len(t.Snapshots)-1]
	ts, _ := time.Parse(time.RFC3339Nano, last.TS)
	return model.Player{
		UUID:        t.UUID,
		Username:    last.Username,
		Advancement: last.Advancement,
		Pokedex:     pokedex.Compute(model.Snapshot{Species: last.Species, Party: last.Party}.OwnedSpecies(), totalSpecies),
		Party:       roster.Party(last.Party),
		UpdatedAt:   ts,
	}
}

// SnapshotRequest is the body of POST /players/{uuid}/snapshots.
type SnapshotRequest struct {
	SnapshotID  string            `json:"snapshot_id"`
	Username    string            `json:"username,omitempty"`
	Advancement model.Advancement `json:"advancement"`
	Species     []string          `json:"species"`
	Party       []model.Pokemon   `json:"party,omitempty"`
	TS          string            `json:"ts"`
}

// Entry is a leaderboard row.
type Entry struct {
	Rank     int     `json:"rank"`
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	Value    float64 `json:"value"`
}

// AckResponse is the reply to a snapshot submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	Players            int
	SnapshotsGenerated int
	SnapshotsAccepted  int
	SnapshotsDuplicate int
	SnapshotsFailed    int
	Retries            int
	PlayersVerified    int
	TitleMismatches    int
	PartyMismatches    int
	LeaderboardIssues  int
	StartTime          time.Time
	Duration           time.Duration
}
