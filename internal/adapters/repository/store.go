// Package repository holds players and their per-category leaderboards.
package repository

import (
	"context"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/internal/domain/types"
)

// Store provides read/write access to players and rankings.
type Store interface {
	// Upsert replaces the player's state and leaderboard values.
	// A player older than the stored one (by UpdatedAt) is ignored and
	// reported as false.
	Upsert(ctx context.Context, p model.Player, values map[scoring.Category]float64) (bool, error)

	// Player returns the latest stored state. ErrNotFound if unknown.
	Player(ctx context.Context, uuid string) (model.Player, error)

	// Rank returns the player's entry on a leaderboard. ErrNotFound if unknown.
	Rank(ctx context.Context, category scoring.Category, uuid string) (types.Entry, error)

	// TopN returns the best n entries of a leaderboard, value desc then uuid asc.
	TopN(ctx context.Context, category scoring.Category, n int) ([]types.Entry, error)

	// List returns one page of the player directory ordered by name, plus
	// the number of players matching query.
	List(ctx context.Context, query string, offset, limit int) ([]model.Player, int, error)

	// Count returns the number of players.
	Count(ctx context.Context) int
}
