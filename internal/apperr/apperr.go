// Package apperr defines the domain error taxonomy shared by the
// service, repository, and storage layers. Errors carry a machine
// readable code and an HTTP status; they propagate untouched through
// the service layer and are converted to the response envelope by the
// outermost HTTP error handler.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Machine-readable error codes exposed on the HTTP surface.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Error is a domain error with a code, an HTTP status, and optional
// structured details safe to expose to clients.
type Error struct {
	Code    string
	Status  int
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error for server-side logging.
// The cause is never serialized to clients.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

// WithDetails attaches structured details (e.g. field-level validation
// issues) to the error.
func (e *Error) WithDetails(details any) *Error {
	clone := *e
	clone.Details = details
	return &clone
}

// Is matches errors by code, so sentinel comparisons like
// errors.Is(err, apperr.NotFound("document", id)) work regardless of
// message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Validation returns a 400 error for malformed input.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Status: fiber.StatusBadRequest, Message: message}
}

// Unauthorized returns a 401 error.
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Status: fiber.StatusUnauthorized, Message: message}
}

// Forbidden returns a 403 error.
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Status: fiber.StatusForbidden, Message: message}
}

// NotFound returns a 404 error naming the missing resource and its
// identifier.
func NotFound(resource, id string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Status:  fiber.StatusNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
	}
}

// Conflict returns a 409 error.
func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Status: fiber.StatusConflict, Message: message}
}

// RateLimited returns a 429 error.
func RateLimited(message string) *Error {
	return &Error{Code: CodeRateLimited, Status: fiber.StatusTooManyRequests, Message: message}
}

// Internal returns a 500 error. The message should be safe for
// clients; attach the real failure via WithCause.
func Internal(message string) *Error {
	return &Error{Code: CodeInternal, Status: fiber.StatusInternalServerError, Message: message}
}

// Repository returns a 500 error for storage-layer failures.
func Repository(message string, cause error) *Error {
	return Internal(message).WithCause(cause)
}

// Unavailable returns a 503 error.
func Unavailable(message string) *Error {
	return &Error{Code: CodeServiceUnavailable, Status: fiber.StatusServiceUnavailable, Message: message}
}

// IsNotFound reports whether err is (or wraps) a NOT_FOUND error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeNotFound
}

// From extracts the *Error from err, or nil if err is not a domain error.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
