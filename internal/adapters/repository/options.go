package repository

import "github.com/okian/academy/internal/domain/scoring"

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithCategories restricts the leaderboards the store maintains.
func WithCategories(cats ...scoring.Category) Option {
	return func(s *TreapStore) {
		if len(cats) > 0 {
			s.categories = append([]scoring.Category(nil), cats...)
		}
	}
}
