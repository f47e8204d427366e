// Package service wires the ingest pipeline, the ranking store and the
// title resolver behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/academy/internal/adapters/mojang"
	"github.com/okian/academy/internal/adapters/mq/queue"
	"github.com/okian/academy/internal/adapters/mq/worker"
	"github.com/okian/academy/internal/adapters/repository"
	"github.com/okian/academy/internal/domain/dedupe"
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/pokedex"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/internal/domain/titles"
	"github.com/okian/academy/internal/domain/types"
	"github.com/okian/academy/pkg/logger"
	"github.com/okian/academy/pkg/metrics"
)

const (
	defaultSecondaryLimit = 3
	stopTimeout           = 30 * time.Second
)

// PlayerCard is one row of the player directory.
type PlayerCard struct {
	UUID         string            `json:"uuid"`
	Username     string            `json:"username"`
	PrimaryTitle titles.Definition `json:"primaryTitle"`
	EarnedCount  int               `json:"earnedCount"`
	Stats        model.StatRecord  `json:"stats"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// Page is one page of the player directory.
type Page struct {
	Players []PlayerCard `json:"players"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
}

// PlayerSummary is the profile view of a player. Advancement counters are
// flattened into the top level.
type PlayerSummary struct {
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	model.Advancement
	Stats     model.StatRecord         `json:"stats"`
	Pokedex   model.PokedexStats       `json:"pokedex"`
	Titles    titles.Summary           `json:"titles"`
	Ranks     map[scoring.Category]int `json:"ranks"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// Service implements the API dependencies for the tracker.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   queue.Queue
	scorer  scoring.Scorer
	pool    *worker.Pool
	titles  *titles.Resolver
	names   mojang.Names

	workerCount    int
	queueSize      int
	dedupeSize     int
	totalSpecies   int
	secondaryLimit int

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU() * 2,
		queueSize:      10_000,
		dedupeSize:     100_000,
		totalSpecies:   pokedex.DefaultTotalSpecies,
		secondaryLimit: defaultSecondaryLimit,
		titles:         titles.NewResolver(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.names == nil {
		s.names = mojang.NewResolver(mojang.WithRemote(false))
	}

	s.store = repository.NewTreapStore()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.scorer = scoring.NewStatScorer()

	s.pool = worker.NewPool(s.workerCount, s.queue, s.scorer, s.store,
		worker.WithTotalSpecies(s.totalSpecies),
		worker.WithAppliedHook(s.onApplied),
	)
	// Workers outlive the request that started the service.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "academy service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("totalSpecies", s.totalSpecies),
	)
	return nil
}

// Stop drains the queue and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping academy service")

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := s.pool.Shutdown(ctx)

	s.started = false
	s.logger.Info(ctx, "academy service stopped", logger.Int("processed", int(s.pool.Processed())))
	return err
}

func (s *Service) onApplied(p model.Player) {
	s.logger.Debug(context.Background(), "snapshot applied",
		logger.String("uuid", p.UUID),
		logger.Int("captures", p.Advancement.TotalCaptureCount),
		logger.Float64("pokedex", p.Pokedex.CompletionPercentage),
	)
}

// Submit validates and deduplicates a snapshot, then queues it for the
// workers. duplicate reports a snapshot id already seen.
func (s *Service) Submit(ctx context.Context, snap model.Snapshot) (duplicate bool, err error) { //nolint:gocritic // hugeParam: snapshot is copied onto the queue anyway
	if err := s.ready(); err != nil {
		return false, err
	}

	snap.UUID = strings.ToLower(strings.TrimSpace(snap.UUID))
	if snap.UUID == "" {
		metrics.RecordSnapshotRejected("invalid")
		return false, fmt.Errorf("%w: uuid is required", ErrInvalidSnapshot)
	}
	if snap.TS.IsZero() {
		snap.TS = time.Now().UTC()
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = snap.UUID + "@" + strconv.FormatInt(snap.TS.UnixNano(), 10)
	}

	if s.deduper.SeenAndRecord(ctx, snap.SnapshotID) {
		metrics.RecordSnapshotDuplicate()
		s.logger.Debug(ctx, "duplicate snapshot skipped",
			logger.String("snapshotID", snap.SnapshotID),
			logger.String("uuid", snap.UUID),
		)
		return true, nil
	}

	s.names.Seed(snap.UUID, snap.Username)

	if err := s.queue.Enqueue(ctx, snap); err != nil {
		// Let the client retry the same snapshot id.
		s.deduper.Unrecord(ctx, snap.SnapshotID)
		s.logger.Warn(ctx, "snapshot rejected",
			logger.String("snapshotID", snap.SnapshotID),
			logger.Error(err),
		)
		switch {
		case errors.Is(err, queue.ErrFull):
			metrics.RecordSnapshotRejected("backpressure")
			return false, fmt.Errorf("%w: %w", ErrBackpressure, err)
		case errors.Is(err, queue.ErrClosed):
			metrics.RecordSnapshotRejected("shutting_down")
			return false, fmt.Errorf("%w: %w", ErrNotStarted, err)
		default:
			metrics.RecordSnapshotRejected("cancelled")
			return false, fmt.Errorf("enqueue %s: %w", snap.SnapshotID, err)
		}
	}
	metrics.RecordSnapshotIngested()
	return false, nil
}

// Leaderboard returns the top limit entries of category with usernames filled in.
func (s *Service) Leaderboard(ctx context.Context, category string, limit int) ([]types.Entry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	c, err := scoring.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	metrics.RecordLeaderboardQuery(string(c))

	entries, err := s.store.TopN(ctx, c, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard %s: %w", c, err)
	}
	for i := range entries {
		entries[i].Username = s.username(ctx, entries[i].UUID, entries[i].Username)
	}
	return entries, nil
}

// Players returns one page of the player directory. page is 1-based.
func (s *Service) Players(ctx context.Context, query string, page, limit int) (Page, error) {
	if err := s.ready(); err != nil {
		return Page{}, err
	}
	if page < 1 {
		page = 1
	}
	players, total, err := s.store.List(ctx, query, (page-1)*limit, limit)
	if err != nil {
		return Page{}, fmt.Errorf("list players: %w", err)
	}

	cards := make([]PlayerCard, len(players))
	for i, p := range players {
		stat := p.StatRecord()
		sum := s.titles.Evaluate(stat, 0)
		cards[i] = PlayerCard{
			UUID:         p.UUID,
			Username:     s.username(ctx, p.UUID, p.Username),
			PrimaryTitle: sum.Primary,
			EarnedCount:  sum.EarnedCount,
			Stats:        stat,
			UpdatedAt:    p.UpdatedAt,
		}
	}
	return Page{Players: cards, Total: total, Page: page, Limit: limit}, nil
}

// Summary returns the profile of a player.
func (s *Service) Summary(ctx context.Context, uuid string) (PlayerSummary, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return PlayerSummary{}, err
	}

	stat := p.StatRecord()
	sum := s.evaluate(stat, s.secondaryLimit)

	ranks := make(map[scoring.Category]int, len(scoring.Categories()))
	for _, c := range scoring.Categories() {
		if e, err := s.store.Rank(ctx, c, p.UUID); err == nil {
			ranks[c] = e.Rank
		}
	}

	return PlayerSummary{
		UUID:        p.UUID,
		Username:    s.username(ctx, p.UUID, p.Username),
		Advancement: p.Advancement,
		Stats:       stat,
		Pokedex:     p.Pokedex,
		Titles:      sum,
		Ranks:       ranks,
		UpdatedAt:   p.UpdatedAt,
	}, nil
}

// Titles returns the primary and up to limit secondary titles of a player.
// A negative limit selects the configured default.
func (s *Service) Titles(ctx context.Context, uuid string, limit int) (titles.Summary, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return titles.Summary{}, err
	}
	if limit < 0 {
		limit = s.secondaryLimit
	}
	return s.evaluate(p.StatRecord(), limit), nil
}

// TitleGallery returns every title with its earned flag and progress.
func (s *Service) TitleGallery(ctx context.Context, uuid string) ([]titles.Card, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return nil, err
	}
	return s.titles.Gallery(p.StatRecord()), nil
}

// TitleProgress returns a player's progress toward one title.
func (s *Service) TitleProgress(ctx context.Context, uuid, id string) (titles.Progress, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return titles.Progress{}, err
	}
	prog, ok := s.titles.ProgressFor(p.StatRecord(), id)
	if !ok {
		return titles.Progress{}, fmt.Errorf("%w: %q", ErrTitleNotFound, id)
	}
	return prog, nil
}

// Pokedex returns a player's pokédex completion.
func (s *Service) Pokedex(ctx context.Context, uuid string) (model.PokedexStats, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return model.PokedexStats{}, err
	}
	return p.Pokedex, nil
}

// Party returns a player's party ordered by slot.
func (s *Service) Party(ctx context.Context, uuid string) ([]model.Pokemon, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if p.Party == nil {
		return []model.Pokemon{}, nil
	}
	return p.Party, nil
}

// PC returns one 1-based page of a player's PC storage matching f.
func (s *Service) PC(ctx context.Context, uuid string, f roster.Filter, page, limit int) (roster.Page, error) {
	p, err := s.player(ctx, uuid)
	if err != nil {
		return roster.Page{}, err
	}
	out, err := roster.Paginate(p.PC, f, page, limit)
	if err != nil {
		return roster.Page{}, fmt.Errorf("pc of %s: %w", uuid, err)
	}
	return out, nil
}

// Rank returns a player's entry on one leaderboard.
func (s *Service) Rank(ctx context.Context, uuid, category string) (types.Entry, error) {
	if err := s.ready(); err != nil {
		return types.Entry{}, err
	}
	c, err := scoring.ParseCategory(category)
	if err != nil {
		return types.Entry{}, err
	}
	e, err := s.store.Rank(ctx, c, normalize(uuid))
	if err != nil {
		return types.Entry{}, fmt.Errorf("rank %s in %s: %w", uuid, c, err)
	}
	e.Username = s.username(ctx, e.UUID, e.Username)
	return e, nil
}

// Catalog returns every title definition in catalog order.
func (s *Service) Catalog() []titles.Definition {
	return s.titles.Catalog().All()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"queueSize":    s.queueSize,
		"dedupeSize":   s.dedupeSize,
		"totalSpecies": s.totalSpecies,
		"titles":       s.titles.Catalog().Len(),
	}

	if s.store != nil {
		queueLen := s.queue.Len(ctx)
		players := s.store.Count(ctx)

		stats["queueLength"] = queueLen
		stats["totalPlayers"] = players
		stats["processed"] = s.pool.Processed()
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdatePlayersTracked(players)
	}
	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

func (s *Service) player(ctx context.Context, uuid string) (model.Player, error) {
	if err := s.ready(); err != nil {
		return model.Player{}, err
	}
	p, err := s.store.Player(ctx, normalize(uuid))
	if err != nil {
		return model.Player{}, fmt.Errorf("player %s: %w", uuid, err)
	}
	return p, nil
}

func (s *Service) evaluate(stat model.StatRecord, limit int) titles.Summary {
	sum := s.titles.Evaluate(stat, limit)
	metrics.RecordTitleEvaluation(sum.Primary.Rarity.String())
	return sum
}

// username prefers the name the game server reported.
func (s *Service) username(ctx context.Context, uuid, known string) string {
	if strings.TrimSpace(known) != "" {
		return known
	}
	return s.names.Resolve(ctx, uuid)
}

func normalize(uuid string) string {
	return strings.ToLower(strings.TrimSpace(uuid))
}
