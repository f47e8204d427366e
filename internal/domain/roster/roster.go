// Package roster orders and filters a player's party and PC storage.
package roster

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/academy/internal/domain/model"
)

// PartySize is the number of party slots.
const PartySize = 6

// DefaultPCLimit is the PC page size used when none is given.
const DefaultPCLimit = 50

// Party keeps members with a species in slots 0-5, ordered by slot. When two
// members claim a slot the first one wins. Box indices are cleared.
func Party(mons []model.Pokemon) []model.Pokemon {
	var bySlot [PartySize]*model.Pokemon
	for i := range mons {
		p := mons[i]
		if strings.TrimSpace(p.Species) == "" || p.Slot < 0 || p.Slot >= PartySize || bySlot[p.Slot] != nil {
			continue
		}
		p.Box = nil
		bySlot[p.Slot] = &p
	}
	out := make([]model.Pokemon, 0, PartySize)
	for _, p := range bySlot {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Storage keeps boxed entries with a species and non-negative box and slot,
// ordered by box then slot. Duplicate positions keep the first entry.
func Storage(mons []model.Pokemon) []model.Pokemon {
	type pos struct{ box, slot int }
	seen := make(map[pos]struct{}, len(mons))
	out := make([]model.Pokemon, 0, len(mons))
	for _, p := range mons {
		if strings.TrimSpace(p.Species) == "" || p.Box == nil || *p.Box < 0 || p.Slot < 0 {
			continue
		}
		k := pos{*p.Box, p.Slot}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		box := *p.Box
		p.Box = &box
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b model.Pokemon) int {
		if c := cmp.Compare(*a.Box, *b.Box); c != 0 {
			return c
		}
		return cmp.Compare(a.Slot, b.Slot)
	})
	return out
}

// Filter narrows a PC listing. A nil Shiny matches both; Species matches a
// case-insensitive substring of the species name.
type Filter struct {
	Shiny   *bool
	Species string
}

// Match reports whether p passes the filter.
func (f Filter) Match(p model.Pokemon) bool {
	if f.Shiny != nil && p.Shiny != *f.Shiny {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Species)); q != "" {
		return strings.Contains(strings.ToLower(p.Species), q)
	}
	return true
}

// Page is one page of a filtered PC listing. Total counts every match.
type Page struct {
	Pokemon []model.Pokemon `json:"pokemon"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

// Paginate filters pc and returns the 1-based page. A page past the end is
// empty but still reports the total.
func Paginate(pc []model.Pokemon, f Filter, page, limit int) (Page, error) {
	if page < 1 || limit < 1 {
		return Page{}, ErrInvalidPage
	}
	matched := make([]model.Pokemon, 0, len(pc))
	for _, p := range pc {
		if f.Match(p) {
			matched = append(matched, p)
		}
	}
	out := Page{Pokemon: []model.Pokemon{}, Total: len(matched), Page: page, Limit: limit}
	start := (page - 1) * limit
	if start >= len(matched) {
		return out, nil
	}
	out.Pokemon = matched[start:min(start+limit, len(matched))]
	return out, nil
}
