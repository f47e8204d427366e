// Package worker applies queued player snapshots to the ranking store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/academy/internal/adapters/mq/queue"
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/internal/domain/pokedex"
	"github.com/okian/academy/internal/domain/roster"
	"github.com/okian/academy/internal/domain/scoring"
	"github.com/okian/academy/pkg/logger"
	"github.com/okian/academy/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
)

// Updater stores a player with its leaderboard values.
type Updater interface {
	Upsert(ctx context.Context, p model.Player, values map[scoring.Category]float64) (bool, error)
}

// Scorer computes leaderboard values for a player.
type Scorer interface {
	Score(ctx context.Context, p model.Player) (scoring.Result, error)
}

// Queue defines how workers receive snapshots.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Snapshot
}

// Worker processes snapshots until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue        Queue
	scorer       Scorer
	updater      Updater
	name         string
	totalSpecies int
	onApplied    func(model.Player)

	processed atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, updater Updater, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:        q,
		scorer:       scorer,
		updater:      updater,
		name:         "worker",
		totalSpecies: pokedex.DefaultTotalSpecies,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		logger:       logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	// The dequeue goroutine stops with this context.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			if err := w.Apply(ctx, s); err != nil {
				w.logger.Error(ctx, "error applying snapshot", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without draining the queue.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Apply turns a snapshot into a player, scores it and stores it.
func (w *InMemoryWorker) Apply(ctx context.Context, s queue.Snapshot) error { //nolint:gocritic // hugeParam: snapshot passed by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	p := model.Player{
		UUID:        s.UUID,
		Username:    s.Username,
		Advancement: s.Advancement,
		Pokedex:     pokedex.Compute(s.OwnedSpecies(), w.totalSpecies),
		Party:       roster.Party(s.Party),
		PC:          roster.Storage(s.PC),
		UpdatedAt:   s.TS,
	}

	res, err := w.scorer.Score(ctx, p)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		metrics.RecordErrorByType("scoring_error", "high")
		return fmt.Errorf("score snapshot %s: %w", s.SnapshotID, err)
	}

	updated, err := w.updater.Upsert(ctx, p, res.Values)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		return fmt.Errorf("store snapshot %s: %w", s.SnapshotID, err)
	}
	if !updated {
		w.logger.Debug(ctx, "stale snapshot ignored",
			logger.String("snapshotID", s.SnapshotID),
			logger.String("uuid", s.UUID),
		)
		return nil
	}

	w.processed.Add(1)
	if w.onApplied != nil {
		w.onApplied(p)
	}
	return nil
}

// Processed returns how many snapshots this worker has stored.
func (w *InMemoryWorker) Processed() int64 {
	return w.processed.Load()
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	started      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup

	lastProcessed     int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a worker pool. workerCount < 1 selects a CPU-based default.
// Options are applied to every worker.
func NewPool(workerCount int, q Queue, scorer Scorer, updater Updater, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             q,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, scorer, updater, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.Run(ctx)
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runMetricsUpdater(ctx)
	}()
}

func (p *Pool) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	total := p.Processed()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(total-p.lastProcessed) / elapsed)
	}
	p.lastProcessed = total
	p.lastProcessedTime = now
}

// Processed returns the number of snapshots stored by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Shutdown closes the queue and waits for the workers to drain it. When ctx
// expires first the workers are stopped with whatever is left queued.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		p.shutdownOnce.Do(func() { close(p.shutdown) })
		return nil
	}

	drained := make(chan struct{})
	go func() {
		for _, w := range p.workers {
			<-w.done
		}
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool drain timed out")
		for _, w := range p.workers {
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
		err = fmt.Errorf("drain timed out: %w", ctx.Err())
	}

	p.shutdownOnce.Do(func() { close(p.shutdown) })
	p.wg.Wait()
	return err
}
