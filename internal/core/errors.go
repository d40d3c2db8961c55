package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every lookup miss below.
	ErrNotFound = errors.New("not found")

	ErrPersonNotFound = fmt.Errorf("person %w", ErrNotFound)
	ErrEntryNotFound  = fmt.Errorf("mood entry %w", ErrNotFound)
	ErrPresetNotFound = fmt.Errorf("cycle preset %w", ErrNotFound)
)

// ValidationError reports malformed input rejected before any write.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// IsValidation reports whether err wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
