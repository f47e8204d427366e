package titles

import (
	"cmp"
	"slices"

	"github.com/okian/academy/internal/domain/model"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithCatalog evaluates titles against c instead of the default catalog.
func WithCatalog(c *Catalog) Option {
	return func(r *Resolver) {
		if c != nil {
			r.catalog = c
		}
	}
}

// Resolver turns stat records into ranked title views.
type Resolver struct {
	catalog *Catalog
}

// NewResolver creates a resolver over the default catalog unless overridden.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{catalog: Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog the resolver evaluates.
func (r *Resolver) Catalog() *Catalog {
	return r.catalog
}

// Compare is the canonical title ordering: rarity descending, then priority
// descending. It returns a negative number when a ranks ahead of b. Id is a
// final tie-break so custom catalogs still sort deterministically.
func Compare(a, b Definition) int {
	if c := cmp.Compare(b.Rarity, a.Rarity); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Earned returns every title whose rule holds for s, in catalog order.
// The baseline is always included.
func (r *Resolver) Earned(s model.StatRecord) []Definition {
	out := make([]Definition, 0, r.catalog.Len())
	for _, d := range r.catalog.defs {
		if d.Earned(s) {
			out = append(out, d)
		}
	}
	return out
}

// Primary returns the highest-ranked earned title. It falls back to the
// baseline only when nothing else is earned.
func (r *Resolver) Primary(s model.StatRecord) Definition {
	earned := r.Earned(s)
	if len(earned) == 0 {
		return r.catalog.Baseline()
	}
	return slices.MinFunc(earned, Compare)
}

// Secondary returns up to limit earned titles other than the primary and the
// baseline, best first.
func (r *Resolver) Secondary(s model.StatRecord, limit int) []Definition {
	if limit <= 0 {
		return []Definition{}
	}
	primary := r.Primary(s)
	return r.secondary(r.Earned(s), primary.ID, limit)
}

func (r *Resolver) secondary(earned []Definition, primaryID string, limit int) []Definition {
	out := make([]Definition, 0, len(earned))
	for _, d := range earned {
		if d.ID == primaryID || d.Baseline {
			continue
		}
		out = append(out, d)
	}
	slices.SortFunc(out, Compare)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ProgressFor applies the progress function of title id to s.
// The boolean is false when the id is not in the catalog.
func (r *Resolver) ProgressFor(s model.StatRecord, id string) (Progress, bool) {
	d, ok := r.catalog.Find(id)
	if !ok {
		return Progress{}, false
	}
	return d.Progress(s), true
}

// Summary is the badge view of a single player.
type Summary struct {
	Primary   Definition   `json:"primary"`
	Secondary []Definition `json:"secondary"`
	Earned    []Definition `json:"earned"`
	// EarnedCount excludes the baseline title.
	EarnedCount int `json:"earnedCount"`
	Total       int `json:"total"`
}

// Evaluate computes the primary, secondary and earned titles in one pass.
func (r *Resolver) Evaluate(s model.StatRecord, limit int) Summary {
	earned := r.Earned(s)
	primary := r.catalog.Baseline()
	if len(earned) > 0 {
		primary = slices.MinFunc(earned, Compare)
	}
	secondary := []Definition{}
	if limit > 0 {
		secondary = r.secondary(earned, primary.ID, limit)
	}
	count := 0
	for _, d := range earned {
		if !d.Baseline {
			count++
		}
	}
	return Summary{
		Primary:     primary,
		Secondary:   secondary,
		Earned:      earned,
		EarnedCount: count,
		Total:       r.catalog.Len() - 1,
	}
}

// Card is one tile of the achievement gallery.
type Card struct {
	Definition
	Unlocked bool     `json:"earned"`
	Status   Progress `json:"progress"`
}

// Gallery returns a card per catalog entry. Earned titles come first; each
// group is ordered by Compare.
func (r *Resolver) Gallery(s model.StatRecord) []Card {
	out := make([]Card, 0, r.catalog.Len())
	for _, d := range r.catalog.defs {
		out = append(out, Card{Definition: d, Unlocked: d.Earned(s), Status: d.Progress(s)})
	}
	slices.SortStableFunc(out, func(a, b Card) int {
		if a.Unlocked != b.Unlocked {
			if a.Unlocked {
				return -1
			}
			return 1
		}
		return Compare(a.Definition, b.Definition)
	})
	return out
}
