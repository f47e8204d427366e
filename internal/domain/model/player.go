// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Advancement mirrors the aggregate counters the game server keeps per player.
type Advancement struct {
	TotalCaptureCount          int                 `json:"totalCaptureCount"`
	TotalShinyCaptureCount     int                 `json:"totalShinyCaptureCount"`
	TotalEggsCollected         int                 `json:"totalEggsCollected"`
	TotalEggsHatched           int                 `json:"totalEggsHatched"`
	TotalEvolvedCount          int                 `json:"totalEvolvedCount"`
	TotalBattleVictoryCount    int                 `json:"totalBattleVictoryCount"`
	TotalPvPBattleVictoryCount int                 `json:"totalPvPBattleVictoryCount"`
	TotalPvWBattleVictoryCount int                 `json:"totalPvWBattleVictoryCount"`
	TotalPvNBattleVictoryCount int                 `json:"totalPvNBattleVictoryCount"`
	TotalTypeCaptureCounts     map[string]int      `json:"totalTypeCaptureCounts,omitempty"`
	AspectsCollected           map[string][]string `json:"aspectsCollected,omitempty"`
}

// StatSpread holds one value per battle stat. Used for IVs and EVs.
type StatSpread struct {
	HP             int `json:"hp"`
	Attack         int `json:"attack"`
	Defence        int `json:"defence"`
	SpecialAttack  int `json:"special_attack"`
	SpecialDefence int `json:"special_defence"`
	Speed          int `json:"speed"`
}

// Move is one entry of a Pokémon's move set.
type Move struct {
	Name           string `json:"name"`
	PP             int    `json:"pp"`
	RaisedPPStages int    `json:"raisedPPStages"`
}

// Ability is a Pokémon's active ability.
type Ability struct {
	Name     string `json:"name"`
	Index    int    `json:"index"`
	Priority string `json:"priority,omitempty"`
}

// Pokemon is one party member or PC box entry. Box is nil for party members;
// Slot is the party slot (0-5) or the slot inside Box.
type Pokemon struct {
	Species         string     `json:"species"`
	Level           int        `json:"level"`
	Experience      int        `json:"experience"`
	Gender          string     `json:"gender"`
	Shiny           bool       `json:"shiny"`
	Nature          string     `json:"nature"`
	Ability         Ability    `json:"ability"`
	IVs             StatSpread `json:"ivs"`
	EVs             StatSpread `json:"evs"`
	Moves           []Move     `json:"moves"`
	Health          int        `json:"health"`
	Friendship      int        `json:"friendship"`
	FormID          string     `json:"formId"`
	TeraType        string     `json:"teraType,omitempty"`
	CaughtBall      string     `json:"caughtBall"`
	ScaleModifier   float64    `json:"scaleModifier"`
	OriginalTrainer string     `json:"originalTrainer,omitempty"`
	Box             *int       `json:"boxIndex,omitempty"`
	Slot            int        `json:"slotIndex"`
}

// Snapshot is one push of a player's data from the game server.
type Snapshot struct {
	SnapshotID  string      // unique id for idempotency
	UUID        string      // player uuid
	Username    string      // optional; resolved upstream when empty
	Advancement Advancement // aggregate counters
	Species     []string    // species reported directly; merged with Party and PC
	Party       []Pokemon   // party slots
	PC          []Pokemon   // PC storage, every box
	TS          time.Time   // when the game server produced the snapshot
}

// OwnedSpecies lists every species name the snapshot mentions, duplicates
// included.
func (s Snapshot) OwnedSpecies() []string {
	out := make([]string, 0, len(s.Species)+len(s.Party)+len(s.PC))
	out = append(out, s.Species...)
	for _, p := range s.Party {
		out = append(out, p.Species)
	}
	for _, p := range s.PC {
		out = append(out, p.Species)
	}
	return out
}

// PokedexStats summarises species ownership.
type PokedexStats struct {
	TotalSeen            int     `json:"total_seen"`
	TotalCaught          int     `json:"total_caught"`
	TotalSpecies         int     `json:"total_species"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// Player is the latest accepted snapshot of a player plus derived data.
type Player struct {
	UUID        string
	Username    string
	Advancement Advancement
	Pokedex     PokedexStats
	Party       []Pokemon // ordered by slot
	PC          []Pokemon // ordered by box, then slot
	UpdatedAt   time.Time
}

// StatRecord is the flat per-player record the title subsystem evaluates.
// PokedexCompletion is a percentage in [0,100].
type StatRecord struct {
	TotalCaptures     int     `json:"totalCaptures"`
	ShinyCount        int     `json:"shinyCount"`
	BattlesWon        int     `json:"battlesWon"`
	PokedexCompletion float64 `json:"pokedexCompletion"`
}

// StatRecord flattens the player into the record titles are computed from.
func (p Player) StatRecord() StatRecord {
	return StatRecord{
		TotalCaptures:     p.Advancement.TotalCaptureCount,
		ShinyCount:        p.Advancement.TotalShinyCaptureCount,
		BattlesWon:        p.Advancement.TotalBattleVictoryCount,
		PokedexCompletion: p.Pokedex.CompletionPercentage,
	}
}

// DisplayName returns the username, or the fallback used across the dashboard.
func (p Player) DisplayName() string {
	if name := strings.TrimSpace(p.Username); name != "" {
		return name
	}
	return UnknownTrainer
}

// UnknownTrainer is shown when a player's username cannot be resolved.
const UnknownTrainer = "Unknown Trainer"
