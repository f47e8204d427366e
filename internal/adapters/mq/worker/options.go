package worker

import (
	"github.com/okian/academy/internal/domain/model"
	"github.com/okian/academy/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithTotalSpecies sets the pokédex completion denominator.
func WithTotalSpecies(n int) Option {
	return func(w *InMemoryWorker) {
		if n > 0 {
			w.totalSpecies = n
		}
	}
}

// WithAppliedHook registers fn to run after a snapshot is stored.
func WithAppliedHook(fn func(model.Player)) Option {
	return func(w *InMemoryWorker) {
		w.onApplied = fn
	}
}
