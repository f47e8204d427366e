package titles

import (
	"fmt"
	"strings"

	"github.com/okian/academy/internal/domain/model"
)

// Title ids of the default catalog.
const (
	PokedexMaster  = "pokedex-master"
	MasudaMaster   = "masuda-master"
	LeagueChampion = "league-champion"
	EliteCollector = "elite-collector"
	ShinyHunter    = "shiny-hunter"
	Professor      = "professor"
	BattleElite    = "battle-elite"
	Collector      = "collector"
	RookieTrainer  = "rookie-trainer"
)

// Catalog is an immutable, ordered set of title definitions.
// Order is insertion order and carries no ranking meaning.
type Catalog struct {
	defs     []Definition
	index    map[string]int
	baseline int
}

// NewCatalog validates defs and builds a catalog from them. Ids must be
// unique and exactly one definition must be the baseline.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{
		defs:     make([]Definition, 0, len(defs)),
		index:    make(map[string]int, len(defs)),
		baseline: -1,
	}
	for _, d := range defs {
		switch {
		case strings.TrimSpace(d.ID) == "":
			return nil, fmt.Errorf("%w: empty id", ErrInvalidDefinition)
		case d.Earned == nil || d.Progress == nil:
			return nil, fmt.Errorf("%w: %s has no rule", ErrInvalidDefinition, d.ID)
		}
		if _, ok := c.index[d.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTitle, d.ID)
		}
		if d.Baseline {
			if c.baseline >= 0 {
				return nil, fmt.Errorf("%w: %s and %s", ErrBaseline, c.defs[c.baseline].ID, d.ID)
			}
			c.baseline = len(c.defs)
		}
		c.index[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	if c.baseline < 0 {
		return nil, ErrBaseline
	}
	return c, nil
}

// All returns every definition in catalog order. The slice is a copy.
func (c *Catalog) All() []Definition {
	out := make([]Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Find looks a definition up by id.
func (c *Catalog) Find(id string) (Definition, bool) {
	i, ok := c.index[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Baseline returns the always-earned fallback title.
func (c *Catalog) Baseline() Definition {
	return c.defs[c.baseline]
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.defs)
}

var defaultCatalog = mustCatalog(defaultDefinitions()...)

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

func mustCatalog(defs ...Definition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

func defaultDefinitions() []Definition {
	def := func(d Definition, stat func(model.StatRecord) float64, target float64, round bool) Definition {
		d.Earned, d.Progress = threshold(stat, target, round)
		return d
	}
	return []Definition{
		def(Definition{
			ID:          PokedexMaster,
			Name:        "Pokédex Master",
			ShortLabel:  "Master",
			Description: "A true Pokémon scholar who has catalogued nearly all species.",
			DisplayRule: "Complete 80% or more of the Pokédex",
			Tone:        "gold",
			Rarity:      Legendary,
			Priority:    100,
		}, completion, 80, true),
		def(Definition{
			ID:          MasudaMaster,
			Name:        "Masuda Master",
			ShortLabel:  "Masuda",
			Description: "A legendary shiny hunter with an extraordinary collection.",
			DisplayRule: "Catch 50 or more shiny Pokémon",
			Tone:        "amber",
			Rarity:      Legendary,
			Priority:    90,
		}, shinies, 50, false),
		def(Definition{
			ID:          LeagueChampion,
			Name:        "League Champion",
			ShortLabel:  "Champion",
			Description: "A formidable battler who dominates the competition.",
			DisplayRule: "Win 100 or more battles",
			Tone:        "red",
			Rarity:      Epic,
			Priority:    80,
		}, battles, 100, false),
		def(Definition{
			ID:          EliteCollector,
			Name:        "Elite Collector",
			ShortLabel:  "Elite",
			Description: "An obsessive collector with over a thousand captures.",
			DisplayRule: "Capture 1000 or more Pokémon",
			Tone:        "purple",
			Rarity:      Epic,
			Priority:    70,
		}, captures, 1000, false),
		def(Definition{
			ID:          ShinyHunter,
			Name:        "Shiny Hunter",
			ShortLabel:  "Shiny",
			Description: "A dedicated trainer who seeks rare shiny variants.",
			DisplayRule: "Catch 10 or more shiny Pokémon",
			Tone:        "amber",
			Rarity:      Rare,
			Priority:    60,
		}, shinies, 10, false),
		def(Definition{
			ID:          Professor,
			Name:        "Professor",
			ShortLabel:  "Prof",
			Description: "A studious trainer building a comprehensive Pokédex.",
			DisplayRule: "Complete 50% or more of the Pokédex",
			Tone:        "blue",
			Rarity:      Rare,
			Priority:    55,
		}, completion, 50, true),
		def(Definition{
			ID:          BattleElite,
			Name:        "Battle Elite",
			ShortLabel:  "Elite",
			Description: "A skilled battler with many victories under their belt.",
			DisplayRule: "Win 50 or more battles",
			Tone:        "red",
			Rarity:      Rare,
			Priority:    50,
		}, battles, 50, false),
		def(Definition{
			ID:          Collector,
			Name:        "Collector",
			ShortLabel:  "Collector",
			Description: "A passionate trainer who loves catching Pokémon.",
			DisplayRule: "Capture 500 or more Pokémon",
			Tone:        "green",
			Rarity:      Rare,
			Priority:    40,
		}, captures, 500, false),
		{
			ID:          RookieTrainer,
			Name:        "Rookie Trainer",
			ShortLabel:  "Rookie",
			Description: "Every master was once a beginner. Keep training!",
			DisplayRule: "Default title for all trainers",
			Tone:        "gray",
			Rarity:      Common,
			Priority:    0,
			Baseline:    true,
			Earned:      always,
			Progress:    complete,
		},
	}
}
