package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies the failure class surfaced to callers.
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeRateLimited     Code = "RATE_LIMIT_EXCEEDED"
	CodeMalformedCursor Code = "MALFORMED_CURSOR"
	CodeConflict        Code = "CONFLICT"
	CodeValidation      Code = "VALIDATION_ERROR"
	CodeInternal        Code = "INTERNAL_ERROR"
)

// Error is a typed domain failure. Internal causes are carried for
// logging but never shown in the user-visible message.
type Error struct {
	Code       Code
	Message    string
	RetryAfter time.Duration // set for CodeRateLimited
	cause      error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func RateLimited(action string, retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("rate limit exceeded for %s", action),
		RetryAfter: retryAfter,
	}
}

func MalformedCursor(format string, args ...interface{}) *Error {
	return &Error{Code: CodeMalformedCursor, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected error behind an opaque message. The
// cause stays reachable through Unwrap for operator logs.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", cause: cause}
}

// CodeOf extracts the failure class from an error chain, defaulting to
// CodeInternal for untyped errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// UserMessage returns the message safe to show to the caller.
func UserMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return "internal error"
}

// RetryAfterOf returns the retry hint carried by a rate-limit error,
// or zero.
func RetryAfterOf(err error) time.Duration {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}
	return 0
}
