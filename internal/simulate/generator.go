package simulate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/pkg/logger"
)

// Upper bounds of the generated stats. They straddle every title threshold
// so a run exercises the whole catalog.
const (
	maxCaptures   = 1500
	maxShinies    = 70
	maxBattles    = 160
	maxEggs       = 80
	maxAspects    = 12
	namelessEvery = 10
)

var typeNames = []string{"fire", "water", "grass", "electric", "psychic", "dragon", "ghost", "fairy"}

// Generate creates trainers with increasing snapshots. Every tenth trainer
// carries no username so the server's name fallback is exercised.
func Generate(ctx context.Context, cfg *Config, stats *Stats) []Trainer {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	logger.Get().Named("simulate").Info(ctx, "generating trainers",
		logger.Int("players", cfg.Players),
		logger.Int("snapshotsPerPlayer", cfg.SnapshotsPerPlayer),
		logger.Any("seed", seed))

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Duration(cfg.SnapshotsPerPlayer) * time.Minute)
	trainers := make([]Trainer, cfg.Players)
	for i := range trainers {
		trainers[i] = newTrainer(rng, i, cfg, base)
		stats.SnapshotsGenerated += len(trainers[i].Snapshots)
	}
	stats.Players = len(trainers)
	return trainers
}

func newTrainer(rng *rand.Rand, i int, cfg *Config, base time.Time) Trainer {
	id := uuid.NewString()
	name := fmt.Sprintf("Trainer%04d", i)
	if i%namelessEvery == namelessEvery-1 {
		name = ""
	}

	final := model.Advancement{
		TotalCaptureCount:       rng.IntN(maxCaptures + 1),
		TotalShinyCaptureCount:  rng.IntN(maxShinies + 1),
		TotalBattleVictoryCount: rng.IntN(maxBattles + 1),
		TotalEggsHatched:        rng.IntN(maxEggs + 1),
	}
	final.TotalEggsCollected = final.TotalEggsHatched + rng.IntN(10)
	final.TotalEvolvedCount = final.TotalCaptureCount / 4
	species := rng.Perm(cfg.TotalSpecies)[:rng.IntN(cfg.TotalSpecies*9/10+1)]
	aspects := rng.IntN(maxAspects + 1)

	t := Trainer{UUID: id, Username: name, Snapshots: make([]SnapshotRequest, cfg.SnapshotsPerPlayer)}
	n := cfg.SnapshotsPerPlayer
	for s := 0; s < n; s++ {
		frac := func(v int) int { return v * (s + 1) / n }
		adv := model.Advancement{
			TotalCaptureCount:       frac(final.TotalCaptureCount),
			TotalShinyCaptureCount:  frac(final.TotalShinyCaptureCount),
			TotalEggsCollected:      frac(final.TotalEggsCollected),
			TotalEggsHatched:        frac(final.TotalEggsHatched),
			TotalEvolvedCount:       frac(final.TotalEvolvedCount),
			TotalBattleVictoryCount: frac(final.TotalBattleVictoryCount),
			TotalTypeCaptureCounts:  typeCounts(frac(final.TotalCaptureCount)),
			AspectsCollected:        aspectMap(frac(aspects)),
		}
		owned := make([]string, 0, frac(len(species)))
		for _, idx := range species[:frac(len(species))] {
			owned = append(owned, fmt.Sprintf("species-%03d", idx))
		}
		party := make([]model.Pokemon, 0, roster.PartySize)
		for slot, sp := range owned[:min(roster.PartySize, len(owned))] {
			party = append(party, model.Pokemon{Species: sp, Level: 5 + rng.IntN(96), Shiny: rng.IntN(8) == 0, Slot: slot})
		}
		t.Snapshots[s] = SnapshotRequest{
			SnapshotID:  fmt.Sprintf("%s-%d", id, s),
			Username:    name,
			Advancement: adv,
			Species:     owned[len(party):],
			Party:       party,
			TS:          base.Add(time.Duration(s) * time.Minute).Format(time.RFC3339Nano),
		}
	}
	return t
}

func typeCounts(captures int) map[string]int {
	out := make(map[string]int, len(typeNames))
	for i, name := range typeNames {
		out[name] = captures / (i + 2)
	}
	return out
}

func aspectMap(n int) map[string][]string {
	out := make(map[string][]string, n)
	for i := 0; i < n; i++ {
		out[fmt.Sprintf("species-%03d", i)] = []string{"shiny"}
	}
	return out
}
