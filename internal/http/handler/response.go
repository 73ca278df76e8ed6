package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/http/middleware"
)

// Response is the standard envelope wrapping every JSON payload.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

// ErrorBody carries the machine-readable error code, a safe message,
// and optional structured details (e.g. field-level validation issues).
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Meta carries response metadata common to success and error envelopes.
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

// PaginatedData wraps list items with pagination info inside the envelope.
type PaginatedData struct {
	Items      any        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func newMeta(c *fiber.Ctx) Meta {
	return Meta{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: middleware.RequestIDFromContext(c),
	}
}

// writeData writes a success envelope with the given status and payload.
func writeData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Response{
		Success: true,
		Data:    data,
		Meta:    newMeta(c),
	})
}

// writeError writes an error envelope without leaking internal details.
func writeError(c *fiber.Ctx, status int, code, message string, details any) error {
	return c.Status(status).JSON(Response{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Meta:    newMeta(c),
	})
}
