// Package errors contains the error helpers shared by deltasync's packages.
// Errors are wrapped with short context strings as they travel up the stack
// so that the final message reads like a trace, e.g.
// "run sync: load manifest: open: permission denied".
package errors

import (
	goErrors "errors"
	"fmt"
)

// New returns an error with the given message.
func New(msg string) error {
	return goErrors.New(msg)
}

// Errorf formats according to the format specifier and returns the result as
// an error.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return goErrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return goErrors.As(err, target)
}

type contextError struct {
	context string
	cause   error
}

// WithContext annotates err with a short description of what was being
// attempted when it occurred.
func WithContext(err error, context string) error {
	if err == nil {
		return New(context)
	}
	return contextError{context: context, cause: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.cause)
}

func (err contextError) Unwrap() error {
	return err.cause
}

// RootCause returns the innermost error wrapped by WithContext.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.cause
	}
}

// FriendlyError is an error whose message is meant to be shown to the user
// as-is, without the context trace.
type FriendlyError struct {
	msg string
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(template string, args ...interface{}) error {
	return FriendlyError{fmt.Sprintf(template, args...)}
}

func (err FriendlyError) Error() string {
	return err.msg
}

// FriendlyMessage returns the message that should be shown to the user.
func (err FriendlyError) FriendlyMessage() string {
	return err.msg
}
