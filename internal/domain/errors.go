package domain

import "errors"

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")

	// ErrSourceUnavailable marks a failed top-level listing call against
	// the external source. It is run-fatal: the cycle writes no snapshots.
	ErrSourceUnavailable = errors.New("source unavailable")
)
