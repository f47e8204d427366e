// Package pokedex computes species completion for a player.
package pokedex

import (
	"math"
	"strings"

	"github.com/okian/academy/internal/domain/model"
)

// DefaultTotalSpecies is the species denominator used for completion.
const DefaultTotalSpecies = 722

// Compute counts distinct species (case-insensitive, blanks ignored) and
// reports completion against totalSpecies, rounded to two decimals.
func Compute(species []string, totalSpecies int) model.PokedexStats {
	seen := make(map[string]struct{}, len(species))
	for _, s := range species {
		name := strings.ToLower(strings.TrimSpace(s))
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}
	caught := len(seen)
	stats := model.PokedexStats{
		TotalSeen:    caught,
		TotalCaught:  caught,
		TotalSpecies: totalSpecies,
	}
	if totalSpecies > 0 {
		stats.CompletionPercentage = math.Round(float64(caught)/float64(totalSpecies)*100*100) / 100
	}
	return stats
}
