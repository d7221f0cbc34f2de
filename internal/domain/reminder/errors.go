package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no reminder exists for the given id.
	ErrNotFound = errors.New("reminder not found")

	// ErrSlotNotFound is returned when a patch names a time with no
	// matching slot on the reminder.
	ErrSlotNotFound = errors.New("time slot not found")

	// ErrNotModified is returned when a patch matched a reminder and slot
	// but changed nothing (the slot was already completed for that day).
	ErrNotModified = errors.New("reminder not modified")

	// ErrForbidden is returned when the caller does not own the reminder.
	ErrForbidden = errors.New("not the reminder owner")
)

// ValidationError reports a missing or malformed field on create or patch.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}
