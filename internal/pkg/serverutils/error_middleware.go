package serverutils

import (
	"errors"

	"bangla-rag-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, apperror.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperror.ErrQuotaExhausted):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := StatusFor(err)
		message := "Request failed"
		switch status {
		case fiber.StatusUnprocessableEntity:
			message = "Validation error"
		case fiber.StatusNotFound:
			message = "Not found"
		case fiber.StatusTooManyRequests:
			message = "Provider quota exhausted"
		case fiber.StatusInternalServerError:
			message = "Internal server error"
		}
		return ctx.Status(status).JSON(ErrorResponse(message, err.Error()))
	}
}
