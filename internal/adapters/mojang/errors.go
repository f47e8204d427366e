package mojang

import "errors"

// Sentinel kinds for username lookups.
var (
	ErrNotFound    = errors.New("profile not found")
	ErrUnavailable = errors.New("profile service unavailable")
	ErrDisabled    = errors.New("remote lookups disabled")
)
