package simulate

import "errors"

// Sentinel kinds for simulation failures.
var (
	ErrUnhealthy    = errors.New("service is not healthy")
	ErrVerification = errors.New("verification failed")
	ErrInvalidInput = errors.New("invalid simulation config")
)
