package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShiftID is returned when shift ID is empty.
	ErrInvalidShiftID = errors.New("invalid shift id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrDriverShiftOpen is returned when the driver already has an open shift
	// and auto-close was not requested.
	ErrDriverShiftOpen = errors.New("driver already has an open shift")

	// ErrShiftClosed is returned when a mutation targets an already closed shift.
	ErrShiftClosed = errors.New("shift already closed")

	// ErrShiftNotClosed is returned when validating a shift that is still open.
	ErrShiftNotClosed = errors.New("shift not closed")

	// ErrShiftAlreadyValidated is returned when validating a shift twice.
	ErrShiftAlreadyValidated = errors.New("shift already validated")

	// ErrReadingBusy is returned when the per-shift merge lock cannot be
	// acquired; the caller should retry the merge.
	ErrReadingBusy = errors.New("meter reading busy, retry merge")

	// ErrUnknownSchemeKind is returned for a pay scheme kind the calculator
	// does not know; schemes are never silently defaulted.
	ErrUnknownSchemeKind = errors.New("unknown pay scheme kind")
)

// ValidationError reports malformed or missing input, identifying the
// offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidField(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
