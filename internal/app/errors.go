package service

import "errors"

// Sentinel kinds returned by the service. Store and scoring sentinels
// (repository.ErrNotFound, repository.ErrInvalidLimit,
// scoring.ErrUnknownCategory) pass through wrapped.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrBackpressure    = errors.New("ingest queue is full")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	ErrTitleNotFound   = errors.New("title not found")
)
