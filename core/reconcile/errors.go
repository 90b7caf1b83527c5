package reconcile

import (
	"errors"

	"event-catalog/core/catalog"
)

var (
	// ErrSourceFailure wraps a failed or timed out source fetch. The run continues without it.
	ErrSourceFailure = errors.New("source failed")
	// ErrValidation marks a raw record that cannot become an event. The record is dropped.
	ErrValidation = errors.New("invalid record")
	// ErrConflict is returned when a record could not be written after all retries.
	ErrConflict = errors.New("persistence conflict")
	// ErrStoreUnavailable aborts the run.
	ErrStoreUnavailable = catalog.ErrUnavailable
)
