package services

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity referenced by id doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is rejected because the
	// entity is not in a state that allows it (e.g. advancing a lead out of
	// a terminal stage). The entity is left unchanged.
	ErrInvalidState = errors.New("invalid state")

	// ErrExternalService wraps gateway/calendar/AI failures. Inside sweeps
	// these are logged and skipped; the item stays eligible next cycle.
	ErrExternalService = errors.New("external service unavailable")

	// errAlreadySent aborts the mark-as-sent transaction when another run
	// claimed the row first. The losing send's log entry is rolled back.
	errAlreadySent = errors.New("already sent")
)

// ValidationError rejects malformed input before any persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
