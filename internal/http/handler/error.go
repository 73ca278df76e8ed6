package handler

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/apperr"
)

// ErrorHandler returns a Fiber global error handler that converts
// domain errors to the response envelope. Domain errors pass their
// code, status, and details through; anything unrecognized becomes a
// generic 500 whose real cause is logged server-side only.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if appErr := apperr.From(err); appErr != nil {
			if appErr.Status >= fiber.StatusInternalServerError {
				log.Printf("internal error: %v", err)
			}
			return writeError(c, appErr.Status, appErr.Code, appErr.Message, appErr.Details)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			switch fiberErr.Code {
			case fiber.StatusBadRequest:
				return writeError(c, fiberErr.Code, apperr.CodeValidation, "bad request", nil)
			case fiber.StatusNotFound:
				return writeError(c, fiberErr.Code, apperr.CodeNotFound, "resource not found", nil)
			case fiber.StatusMethodNotAllowed:
				return writeError(c, fiberErr.Code, apperr.CodeInternal, "method not allowed", nil)
			case fiber.StatusRequestEntityTooLarge:
				return writeError(c, fiberErr.Code, apperr.CodeValidation, "request body too large", nil)
			}
			if fiberErr.Code >= fiber.StatusInternalServerError {
				log.Printf("internal error: %v", err)
			}
			return writeError(c, fiberErr.Code, apperr.CodeInternal, "internal server error", nil)
		}

		log.Printf("internal error: %v", err)
		return writeError(c, fiber.StatusInternalServerError, apperr.CodeInternal, "internal server error", nil)
	}
}
