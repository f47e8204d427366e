package titles

import "errors"

// Sentinel kinds for catalog construction errors.
var (
	ErrInvalidDefinition = errors.New("invalid title definition")
	ErrDuplicateTitle    = errors.New("duplicate title id")
	ErrBaseline          = errors.New("catalog must contain exactly one baseline title")
)
