package serverutils

import (
	"errors"

	"wa-group-gateway/internal/dto"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse builds the JSON error body.
func ErrorResponse(kind, message string) dto.ErrorResponse {
	return dto.ErrorResponse{Error: message, Kind: kind}
}

// Unauthorized is the body of every rejected secret.
func Unauthorized() dto.ErrorResponse {
	return dto.ErrorResponse{Error: "unauthorized"}
}

// ErrorHandlerMiddleware turns errors returned by handlers (including
// fiber's own 404/405) into JSON error bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		kind := "internal_error"
		message := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
			switch {
			case code == fiber.StatusNotFound:
				kind = "not_found"
			case code < fiber.StatusInternalServerError:
				kind = "validation_error"
			}
		}

		return ctx.Status(code).JSON(ErrorResponse(kind, message))
	}
}
