package scheduling

import (
	"errors"
	"fmt"
)

// Expected business outcomes are typed so the transport layer can map them
// to responses without string matching. Anything else (storage unreachable,
// broken timezone database) propagates as a plain error.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a lifecycle operation is applied
	// in a state that does not permit it. Not retryable without re-reading
	// the current status.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrSlotUnavailable is returned when a booking or reschedule lost the
	// race for a time window, or the window is blocked. Retryable after
	// re-querying availability.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrRescheduleAlreadyPending is returned when an appointment already has
	// an unresolved reschedule request.
	ErrRescheduleAlreadyPending = errors.New("a reschedule request is already pending for this appointment")

	// ErrTooLateToReschedule is returned when the appointment starts within
	// the configured lead time.
	ErrTooLateToReschedule = errors.New("too close to the appointment start")
)

// ValidationError reports malformed or missing caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
