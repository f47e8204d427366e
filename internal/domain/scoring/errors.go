package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrUnknownCategory = errors.New("unknown leaderboard category")
)
