// Package apperrors carries the error taxonomy shared by every service:
// validation, not-found, authorization, state-conflict and persistence.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrValidation      ErrorCode = "VALIDATION_ERROR"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrForbidden       ErrorCode = "FORBIDDEN"
	ErrConflict        ErrorCode = "CONFLICT"
	ErrTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"
	ErrEventMismatch   ErrorCode = "EVENT_MISMATCH"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// GenericFailure is the only message a persistence failure ever shows a user.
const GenericFailure = "The operation failed. Please try again later."

type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// Internal wraps a persistence failure. The cause is kept for logging; the
// user-facing message is always GenericFailure.
func Internal(err error) *Error {
	return Wrap(err, ErrInternal, GenericFailure)
}

func Validation(message string) *Error { return New(ErrValidation, message) }
func NotFound(message string) *Error   { return New(ErrNotFound, message) }
func Forbidden(message string) *Error  { return New(ErrForbidden, message) }
func Conflict(message string) *Error   { return New(ErrConflict, message) }

// CodeOf returns the taxonomy code of err, ErrInternal for foreign errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternal
}

func Is(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the text safe to show a user.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Code != ErrInternal {
		return e.Message
	}
	return GenericFailure
}

func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict, ErrEventMismatch:
		return http.StatusConflict
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
