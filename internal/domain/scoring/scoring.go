// Package scoring derives leaderboard values from a player's data.
package scoring

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/academy/internal/domain/model"
)

// Category names a leaderboard.
type Category string

// Leaderboard categories.
const (
	Shiny    Category = "shiny"
	Captures Category = "captures"
	Battles  Category = "battles"
	Breeders Category = "breeders"
	Aspects  Category = "aspects"
	Pokedex  Category = "pokedex"
)

// Categories lists every leaderboard in display order.
func Categories() []Category {
	return []Category{Shiny, Captures, Battles, Breeders, Aspects, Pokedex}
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Value returns the player's value on the given leaderboard.
func Value(c Category, p model.Player) float64 {
	a := p.Advancement
	switch c {
	case Shiny:
		return float64(a.TotalShinyCaptureCount)
	case Captures:
		return float64(a.TotalCaptureCount)
	case Battles:
		return float64(a.TotalBattleVictoryCount)
	case Breeders:
		return float64(a.TotalEggsHatched)
	case Aspects:
		return float64(len(a.AspectsCollected))
	case Pokedex:
		return float64(p.Pokedex.TotalCaught)
	}
	return 0
}

// Result carries a player's value on every maintained leaderboard.
type Result struct {
	UUID   string
	Values map[Category]float64
}

// Scorer computes leaderboard values for a player.
type Scorer interface {
	// Score computes values, honoring ctx for cancellation.
	Score(ctx context.Context, p model.Player) (Result, error)
}

// Option applies a configuration option to the StatScorer.
type Option func(*StatScorer)

// WithCategories restricts scoring to the given leaderboards.
func WithCategories(cats ...Category) Option {
	return func(s *StatScorer) {
		if len(cats) > 0 {
			s.categories = append([]Category(nil), cats...)
		}
	}
}

// StatScorer reads leaderboard values straight from the advancement counters.
type StatScorer struct {
	categories []Category
}

// NewStatScorer creates a scorer covering every category unless restricted.
func NewStatScorer(opts ...Option) *StatScorer {
	s := &StatScorer{categories: Categories()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the player's value for each configured category.
func (s *StatScorer) Score(ctx context.Context, p model.Player) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	values := make(map[Category]float64, len(s.categories))
	for _, c := range s.categories {
		values[c] = Value(c, p)
	}
	return Result{UUID: p.UUID, Values: values}, nil
}
