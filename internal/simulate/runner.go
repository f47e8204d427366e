package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/pkg/logger"
)

const directoryPermission = 0o750

// Run generates trainers, submits their snapshots and verifies what the
// server serves back. The returned stats are filled even when Run fails.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if err := cfg.Validate(); err != nil {
		return stats, err
	}
	log := logger.Get().Named("simulate")
	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("topN", cfg.TopN))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, err
	}

	trainers := Generate(ctx, cfg, stats)
	if cfg.OutputFile != "" {
		if err := save(cfg.OutputFile, trainers); err != nil {
			log.Warn(ctx, "failed to save trainers", logger.Error(err))
		} else {
			log.Info(ctx, "trainers saved", logger.String("file", cfg.OutputFile))
		}
	}

	if err := submitAll(ctx, cfg, client, trainers, stats); err != nil {
		return finish(ctx, stats), err
	}
	if stats.SnapshotsFailed > 0 {
		return finish(ctx, stats), fmt.Errorf("%w: %d snapshots were not accepted", ErrVerification, stats.SnapshotsFailed)
	}

	finals := make([]model.Player, len(trainers))
	for i := range trainers {
		finals[i] = trainers[i].Final(cfg.TotalSpecies)
	}
	if err := settle(ctx, cfg, client, finals); err != nil {
		return finish(ctx, stats), err
	}
	if err := verifyTitles(ctx, cfg, client, finals, stats); err != nil {
		return finish(ctx, stats), err
	}
	if err := verifyParties(ctx, client, finals, stats); err != nil {
		return finish(ctx, stats), err
	}
	if err := verifyLeaderboards(ctx, cfg, client, finals, stats); err != nil {
		return finish(ctx, stats), err
	}

	finish(ctx, stats)
	log.Info(ctx, "simulation passed")
	return stats, nil
}

func finish(ctx context.Context, stats *Stats) *Stats {
	stats.Duration = time.Since(stats.StartTime)
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.SnapshotsAccepted+stats.SnapshotsDuplicate) / stats.Duration.Seconds()
	}
	logger.Get().Named("simulate").Info(ctx, "final statistics",
		logger.Int("players", stats.Players),
		logger.Int("snapshotsGenerated", stats.SnapshotsGenerated),
		logger.Int("snapshotsAccepted", stats.SnapshotsAccepted),
		logger.Int("snapshotsDuplicate", stats.SnapshotsDuplicate),
		logger.Int("snapshotsFailed", stats.SnapshotsFailed),
		logger.Int("retries", stats.Retries),
		logger.Int("playersVerified", stats.PlayersVerified),
		logger.Int("titleMismatches", stats.TitleMismatches),
		logger.Int("partyMismatches", stats.PartyMismatches),
		logger.Int("leaderboardIssues", stats.LeaderboardIssues),
		logger.Duration("duration", stats.Duration),
		logger.Float64("snapshotsPerSecond", perSecond))
	return stats
}

func save(name string, trainers []Trainer) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(trainers, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trainers: %w", err)
	}
	if err := os.WriteFile(name, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
