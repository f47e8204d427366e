// Package titles classifies a player's aggregate stats into ranked badges.
//
// A Catalog is a fixed, ordered set of Definitions. Each Definition pairs
// display data with two pure functions over a model.StatRecord: whether the
// title is earned and how far the player is from earning it. The Resolver
// ranks earned titles by rarity and priority. Nothing here holds mutable
// state, so every function is safe for concurrent use.
package titles

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/academy/internal/domain/model"
)

// Rarity is the coarse tier of a title. Higher values rank first.
type Rarity int

// Rarity tiers in ascending order.
const (
	Common Rarity = iota
	Rare
	Epic
	Legendary
)

var rarityNames = [...]string{
	Common:    "Common",
	Rare:      "Rare",
	Epic:      "Epic",
	Legendary: "Legendary",
}

func (r Rarity) String() string {
	if r < Common || r > Legendary {
		return fmt.Sprintf("Rarity(%d)", int(r))
	}
	return rarityNames[r]
}

// MarshalText encodes the rarity by name.
func (r Rarity) MarshalText() ([]byte, error) {
	if r < Common || r > Legendary {
		return nil, fmt.Errorf("unknown rarity %d", int(r))
	}
	return []byte(rarityNames[r]), nil
}

// UnmarshalText decodes a rarity name, case-insensitively.
func (r *Rarity) UnmarshalText(b []byte) error {
	v, err := ParseRarity(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// ParseRarity returns the rarity with the given name.
func ParseRarity(s string) (Rarity, error) {
	for i, name := range rarityNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Rarity(i), nil
		}
	}
	return Common, fmt.Errorf("unknown rarity %q", s)
}

// Progress describes how close a stat record is to a title's threshold.
// Pct is always within [0,100] and equals 100 exactly when the title is earned.
type Progress struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
	Pct     float64 `json:"pct"`
}

// Definition is one entry of the catalog.
type Definition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ShortLabel  string `json:"shortLabel"`
	Description string `json:"description"`
	DisplayRule string `json:"displayRule"`
	Tone        string `json:"tone"`
	Rarity      Rarity `json:"rarity"`
	Priority    int    `json:"priority"`
	// Baseline marks the always-earned fallback title. It never counts as a
	// real achievement and never appears among secondary titles.
	Baseline bool `json:"baseline"`

	Earned   func(model.StatRecord) bool     `json:"-"`
	Progress func(model.StatRecord) Progress `json:"-"`
}

// threshold builds a matching predicate and progress function for
// "stat >= target". Both read the same raw value, so a title's progress
// saturates exactly when it becomes earned. When round is set the reported
// Current is rounded for display; the comparison still uses the raw value.
func threshold(stat func(model.StatRecord) float64, target float64, round bool) (func(model.StatRecord) bool, func(model.StatRecord) Progress) {
	earned := func(s model.StatRecord) bool {
		return stat(s) >= target
	}
	progress := func(s model.StatRecord) Progress {
		v := stat(s)
		current := v
		if round {
			current = math.Round(v)
		}
		if math.IsNaN(current) {
			current = 0
		}
		return Progress{Current: current, Target: target, Pct: percent(v, target)}
	}
	return earned, progress
}

// percent returns min(100, 100*v/target) clamped to [0,100]. Values below the
// target never reach 100, even when the division rounds up.
func percent(v, target float64) float64 {
	if v >= target {
		return 100
	}
	if target <= 0 || math.IsNaN(v) {
		return 0
	}
	pct := v / target * 100
	switch {
	case math.IsNaN(pct) || pct < 0:
		return 0
	case pct >= 100:
		return math.Nextafter(100, 0)
	}
	return pct
}

func always(model.StatRecord) bool { return true }

func complete(model.StatRecord) Progress { return Progress{Current: 1, Target: 1, Pct: 100} }

func captures(s model.StatRecord) float64   { return float64(s.TotalCaptures) }
func shinies(s model.StatRecord) float64    { return float64(s.ShinyCount) }
func battles(s model.StatRecord) float64    { return float64(s.BattlesWon) }
func completion(s model.StatRecord) float64 { return s.PokedexCompletion }
