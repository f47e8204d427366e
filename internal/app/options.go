package service

import (
	"github.com/okian/academy/internal/adapters/mojang"
	"github.com/okian/academy/internal/domain/titles"
	"github.com/okian/academy/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the snapshot queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the snapshot id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTotalSpecies sets the pokédex completion denominator.
func WithTotalSpecies(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.totalSpecies = n
		}
	}
}

// WithSecondaryLimit sets how many secondary titles a summary carries.
func WithSecondaryLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.secondaryLimit = n
		}
	}
}

// WithNames sets the username resolver.
func WithNames(n mojang.Names) Option {
	return func(s *Service) {
		if n != nil {
			s.names = n
		}
	}
}

// WithTitleResolver replaces the default title resolver.
func WithTitleResolver(r *titles.Resolver) Option {
	return func(s *Service) {
		if r != nil {
			s.titles = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
