package errors

import (
	"fmt"
)

// MissingFieldError represents a missing required field.
type MissingFieldError struct {
	Field string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", err.Field)
}

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ValidationError is returned when the sync options don't contain what a
// diff strategy needs. The message is shown to the user verbatim.
type ValidationError struct {
	Message string
}

func (err ValidationError) Error() string {
	return err.Message
}

// FriendlyMessage returns the message that should be shown to the user.
func (err ValidationError) FriendlyMessage() string {
	return err.Message
}
