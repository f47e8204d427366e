package roster

import "errors"

// ErrInvalidPage is returned for a page or limit below 1.
var ErrInvalidPage = errors.New("invalid page")
