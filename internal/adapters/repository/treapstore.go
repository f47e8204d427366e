package repository

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/internal/domain/types"
	"github.com/okian/academy/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Each category owns one treap ordered value DESC, then uuid ASC, so an
// in-order walk yields the leaderboard best first. Nodes carry subtree
// sizes, which gives Rank in O(log n).

// valueScale keeps six decimals; leaderboard values are counts or
// percentages with two.
const valueScale = 1_000_000

type valueFP int64

func toFixedPoint(x float64) valueFP {
	switch {
	case math.IsNaN(x):
		return 0
	case x*valueScale >= math.MaxInt64:
		return valueFP(math.MaxInt64)
	case x*valueScale <= math.MinInt64:
		return valueFP(math.MinInt64)
	}
	return valueFP(math.Round(x * valueScale))
}

func toFloat(x valueFP) float64 {
	return float64(x) / valueScale
}

type node struct {
	id    string
	value valueFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aValue, aID) ranks before (bValue, bID).
func less(aValue valueFP, aID string, bValue valueFP, bID string) bool {
	if aValue != bValue {
		return aValue > bValue
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, value valueFP) *node {
	if n == nil {
		return &node{id: id, value: value, prio: rand.Uint64(), size: 1}
	}
	if less(value, id, n.value, n.id) {
		n.left = insert(n.left, id, value)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, value)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, value valueFP) *node {
	if n == nil {
		return nil
	}
	if value == n.value && id == n.id {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, value)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, value)
		}
	} else if less(value, id, n.value, n.id) {
		n.left = deleteNode(n.left, id, value)
	} else {
		n.right = deleteNode(n.right, id, value)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes hold a value strictly greater than value.
func countAbove(n *node, value valueFP) int {
	count := 0
	for n != nil {
		if n.value > value {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collectTopN appends up to limit nodes in rank order.
func collectTopN(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// board is one category leaderboard.
type board struct {
	root *node
}

// record is everything stored for one player.
type record struct {
	player model.Player
	values map[scoring.Category]valueFP
}

// TreapStore implements Store with one treap per category.
type TreapStore struct {
	mu         sync.RWMutex
	categories []scoring.Category
	boards     map[scoring.Category]*board
	byID       map[string]*record
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		categories: scoring.Categories(),
		byID:       make(map[string]*record),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.boards = make(map[scoring.Category]*board, len(s.categories))
	for _, c := range s.categories {
		s.boards[c] = &board{}
	}
	return s
}

// Upsert implements Store.Upsert in O(c log n) expected time for c categories.
func (s *TreapStore) Upsert(ctx context.Context, p model.Player, values map[scoring.Category]float64) (bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("upsert %s: %w", p.UUID, err)
	}

	s.mu.Lock()
	old, exists := s.byID[p.UUID]
	if exists && p.UpdatedAt.Before(old.player.UpdatedAt) {
		s.mu.Unlock()
		return false, nil
	}

	rec := &record{player: p, values: make(map[scoring.Category]valueFP, len(s.boards))}
	for c, b := range s.boards {
		nv := toFixedPoint(values[c])
		if exists {
			ov := old.values[c]
			if ov == nv {
				rec.values[c] = nv
				continue
			}
			b.root = deleteNode(b.root, p.UUID, ov)
		}
		b.root = insert(b.root, p.UUID, nv)
		rec.values[c] = nv
	}
	s.byID[p.UUID] = rec
	count := len(s.byID)
	s.mu.Unlock()

	if !exists {
		metrics.UpdatePlayersTracked(count)
	}
	return true, nil
}

// Player implements Store.Player.
func (s *TreapStore) Player(_ context.Context, uuid string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[uuid]
	if !ok {
		return model.Player{}, ErrNotFound
	}
	return rec.player, nil
}

// Rank returns the player's entry in O(log n). Players with equal values
// share a rank; the next distinct value skips the tied positions.
func (s *TreapStore) Rank(_ context.Context, category scoring.Category, uuid string) (types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[category]
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %q", scoring.ErrUnknownCategory, category)
	}
	rec, ok := s.byID[uuid]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return types.Entry{}, ErrNotFound
	}
	v := rec.values[category]
	return types.Entry{
		Rank:     countAbove(b.root, v) + 1,
		UUID:     uuid,
		Username: rec.player.Username,
		Value:    toFloat(v),
	}, nil
}

// TopN returns the top n entries of category.
func (s *TreapStore) TopN(_ context.Context, category scoring.Category, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.boards[category]
	if !ok {
		return nil, fmt.Errorf("%w: %q", scoring.ErrUnknownCategory, category)
	}

	nodes := make([]*node, 0, min(n, len(s.byID)))
	collectTopN(b.root, n, &nodes)

	out := make([]types.Entry, len(nodes))
	for i, nd := range nodes {
		out[i] = types.Entry{
			Rank:     i + 1,
			UUID:     nd.id,
			Username: s.byID[nd.id].player.Username,
			Value:    toFloat(nd.value),
		}
		if i > 0 && nd.value == nodes[i-1].value {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out, nil
}

// List implements Store.List. query matches a username substring or a
// uuid prefix, case-insensitively; an empty query matches everyone.
func (s *TreapStore) List(_ context.Context, query string, offset, limit int) ([]model.Player, int, error) {
	if limit < 1 || offset < 0 {
		return nil, 0, ErrInvalidLimit
	}
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	matched := make([]model.Player, 0, len(s.byID))
	for id, rec := range s.byID {
		if q == "" ||
			strings.Contains(strings.ToLower(rec.player.Username), q) ||
			strings.HasPrefix(strings.ToLower(id), q) {
			matched = append(matched, rec.player)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b model.Player) int {
		if c := strings.Compare(strings.ToLower(a.DisplayName()), strings.ToLower(b.DisplayName())); c != 0 {
			return c
		}
		return strings.Compare(a.UUID, b.UUID)
	})

	total := len(matched)
	if offset >= total {
		return []model.Player{}, total, nil
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

// Count returns the total number of players.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
