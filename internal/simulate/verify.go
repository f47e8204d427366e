package simulate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/internal/domain/titles"
	"github.com/okian/academy/pkg/logger"
)

const pollInterval = 100 * time.Millisecond

// settle waits until the server reports every trainer at its final snapshot.
func settle(ctx context.Context, cfg *Config, c *Client, finals []model.Player) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Settle)
	defer cancel()

	pending := slices.Clone(finals)
	for {
		next := pending[:0]
		for _, p := range pending {
			sum, err := c.Summary(ctx, p.UUID)
			if err != nil || !sum.UpdatedAt.Equal(p.UpdatedAt) {
				next = append(next, p)
			}
		}
		pending = next
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %d players never reached their last snapshot", ErrVerification, len(pending))
		case <-time.After(pollInterval):
		}
	}
}

// verifyTitles compares the server's title summary for every trainer with a
// local evaluation of the same stat record.
func verifyTitles(ctx context.Context, cfg *Config, c *Client, finals []model.Player, stats *Stats) error {
	log := logger.Get().Named("simulate")
	resolver := titles.NewResolver()
	for _, p := range finals {
		want := resolver.Evaluate(p.StatRecord(), cfg.SecondaryLimit)
		got, err := c.Titles(ctx, p.UUID, cfg.SecondaryLimit)
		if err != nil {
			return fmt.Errorf("titles %s: %w", p.UUID, err)
		}
		if diff := compareTitles(want, got); diff != "" {
			stats.TitleMismatches++
			log.Warn(ctx, "title mismatch", logger.String("uuid", p.UUID), logger.String("diff", diff))
			continue
		}
		stats.PlayersVerified++
	}
	if stats.TitleMismatches > 0 {
		return fmt.Errorf("%w: %d title mismatches", ErrVerification, stats.TitleMismatches)
	}
	return nil
}

// titleView is the part of a title summary both sides must agree on.
type titleView struct {
	Primary     string
	Secondary   []string
	EarnedCount int
}

// compareTitles returns a readable diff, empty when the server agrees.
func compareTitles(want titles.Summary, got TitleSummary) string {
	w := titleView{Primary: want.Primary.ID, EarnedCount: want.EarnedCount, Secondary: make([]string, 0, len(want.Secondary))}
	for _, d := range want.Secondary {
		w.Secondary = append(w.Secondary, d.ID)
	}
	g := titleView{Primary: got.Primary.ID, EarnedCount: got.EarnedCount, Secondary: make([]string, 0, len(got.Secondary))}
	for _, d := range got.Secondary {
		g.Secondary = append(g.Secondary, d.ID)
	}
	return cmp.Diff(w, g)
}

// verifyParties checks that every party comes back slot by slot as sent.
func verifyParties(ctx context.Context, c *Client, finals []model.Player, stats *Stats) error {
	log := logger.Get().Named("simulate")
	for _, p := range finals {
		got, err := c.Party(ctx, p.UUID)
		if err != nil {
			return fmt.Errorf("party %s: %w", p.UUID, err)
		}
		if diff := cmp.Diff(partyView(p.Party), partyView(got)); diff != "" {
			stats.PartyMismatches++
			log.Warn(ctx, "party mismatch", logger.String("uuid", p.UUID), logger.String("diff", diff))
		}
	}
	if stats.PartyMismatches > 0 {
		return fmt.Errorf("%w: %d party mismatches", ErrVerification, stats.PartyMismatches)
	}
	return nil
}

// partyView keeps the fields the generator sets, in slot order.
func partyView(mons []model.Pokemon) []string {
	out := make([]string, 0, len(mons))
	for _, m := range mons {
		out = append(out, fmt.Sprintf("%d:%s:%d:%t", m.Slot, m.Species, m.Level, m.Shiny))
	}
	return out
}

// verifyLeaderboards checks ordering and ranking of every category board.
// Other players may share the server, so the local best only bounds the top.
func verifyLeaderboards(ctx context.Context, cfg *Config, c *Client, finals []model.Player, stats *Stats) error {
	log := logger.Get().Named("simulate")
	for _, cat := range scoring.Categories() {
		entries, err := c.Leaderboard(ctx, string(cat), cfg.TopN)
		if err != nil {
			return fmt.Errorf("leaderboard %s: %w", cat, err)
		}
		best := math.Inf(-1)
		for _, p := range finals {
			best = max(best, scoring.Value(cat, p))
		}
		if issue := checkBoard(entries, best); issue != "" {
			stats.LeaderboardIssues++
			log.Warn(ctx, "leaderboard issue", logger.String("category", string(cat)), logger.String("issue", issue))
		}
	}
	if stats.LeaderboardIssues > 0 {
		return fmt.Errorf("%w: %d leaderboard issues", ErrVerification, stats.LeaderboardIssues)
	}
	return nil
}

func checkBoard(entries []Entry, best float64) string {
	if len(entries) == 0 {
		return "empty board"
	}
	if entries[0].Rank != 1 {
		return fmt.Sprintf("first rank %d", entries[0].Rank)
	}
	if entries[0].Value < best {
		return fmt.Sprintf("top value %v below local best %v", entries[0].Value, best)
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		switch {
		case cur.Value > prev.Value:
			return fmt.Sprintf("value rises at position %d", i+1)
		case cur.Value == prev.Value && cur.Rank != prev.Rank:
			return fmt.Sprintf("tie at position %d ranked %d, want %d", i+1, cur.Rank, prev.Rank)
		case cur.Value < prev.Value && cur.Rank != i+1:
			return fmt.Sprintf("position %d ranked %d", i+1, cur.Rank)
		case cur.Value == prev.Value && cur.UUID < prev.UUID:
			return fmt.Sprintf("tie at position %d out of uuid order", i+1)
		}
	}
	return ""
}
