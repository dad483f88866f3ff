package booking

import (
	"context"
	"errors"
	"fmt"

	"lexbook/database/repository"
)

// ErrorCode classifies booking failures. Handlers map codes to HTTP statuses.
type ErrorCode string

const (
	CodeValidation  ErrorCode = "validation"
	CodeNotFound    ErrorCode = "not_found"
	CodeUnavailable ErrorCode = "unavailable"
	CodeConflict    ErrorCode = "conflict"
	CodeForbidden   ErrorCode = "forbidden"
	CodeTimeout     ErrorCode = "timeout"
	CodeInternal    ErrorCode = "internal"
)

// Error is the single error type returned by the booking services.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the same request.
func (e *Error) Retryable() bool {
	return e.Code == CodeTimeout || e.Code == CodeInternal
}

func newError(code ErrorCode, err error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func ValidationError(format string, args ...interface{}) error {
	return newError(CodeValidation, nil, format, args...)
}

func NotFoundError(format string, args ...interface{}) error {
	return newError(CodeNotFound, nil, format, args...)
}

func UnavailableError(format string, args ...interface{}) error {
	return newError(CodeUnavailable, nil, format, args...)
}

func ConflictError(format string, args ...interface{}) error {
	return newError(CodeConflict, nil, format, args...)
}

func ForbiddenError(format string, args ...interface{}) error {
	return newError(CodeForbidden, nil, format, args...)
}

func TimeoutError(err error) error {
	return newError(CodeTimeout, err, "operation timed out")
}

func InternalError(err error, format string, args ...interface{}) error {
	return newError(CodeInternal, err, format, args...)
}

// CodeOf returns the code of a booking error, or CodeInternal for anything else.
func CodeOf(err error) ErrorCode {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// classify turns whatever escaped a unit of work into a booking Error.
// Errors that already carry a code pass through unchanged.
func classify(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var be *Error
	switch {
	case errors.As(err, &be):
		return be
	case errors.Is(err, context.DeadlineExceeded):
		return TimeoutError(err)
	case errors.Is(err, repository.ErrWriteConflict), errors.Is(err, repository.ErrDuplicate):
		return newError(CodeConflict, err, "%s", conflictMsg)
	case errors.Is(err, repository.ErrNotFound):
		return newError(CodeNotFound, err, "resource not found")
	default:
		return InternalError(err, "store failure")
	}
}
