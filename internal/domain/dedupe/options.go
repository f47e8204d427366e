// Package dedupe tracks snapshot ids so each push is applied at most once.
package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of remembered ids.
// If maxSize > 0 the oldest ids are forgotten first once the bound is reached.
// If maxSize <= 0 every id is kept for the life of the process.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}
