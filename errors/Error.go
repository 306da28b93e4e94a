// Package errors provides the typed errors used across the chain-state engine.
//
// Every error carries a machine-readable code (ERR) alongside a human-readable
// message and an optional wrapped cause. Callers match on codes with
// errors.Is against the predefined sentinel values (ErrStorage, ErrBlockInvalid,
// etc.) rather than string comparison.
package errors

import (
	"errors"
	"fmt"
)

// Error is the concrete error type used throughout the engine.
type Error struct {
	code       ERR
	message    string
	wrappedErr error
}

// New creates a new Error with the given code and formatted message. If the
// last param is an error it is attached as the wrapped cause instead of being
// formatted into the message.
func New(code ERR, message string, params ...interface{}) *Error {
	var wrappedErr error

	if len(params) > 0 {
		if err, ok := params[len(params)-1].(error); ok {
			wrappedErr = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	return &Error{
		code:       code,
		message:    message,
		wrappedErr: wrappedErr,
	}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.wrappedErr == nil {
		return fmt.Sprintf("%s (%d): %s", e.code, e.code, e.message)
	}

	return fmt.Sprintf("%s (%d): %s: %v", e.code, e.code, e.message, e.wrappedErr)
}

// Code returns the machine-readable error code.
func (e *Error) Code() ERR {
	if e == nil {
		return ERRUnknown
	}

	return e.code
}

// Message returns the human-readable message without the code prefix.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

// Is reports whether target shares this error's code. Two *Error values match
// when their codes are equal; otherwise matching recurses into the wrapped
// cause.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var te *Error
	if errors.As(target, &te) {
		if e.code == te.code {
			return true
		}
	}

	if e.wrappedErr != nil {
		return errors.Is(e.wrappedErr, target)
	}

	return false
}

// Is delegates to the standard library so callers can keep a single errors
// import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As delegates to the standard library.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap delegates to the standard library.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join delegates to the standard library.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
