package middlewares

import (
	"errors"
	"log/slog"

	"cafe-backend/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a business error kind to its HTTP status.
func StatusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindIllegalTransition, services.KindConflict:
		return fiber.StatusConflict
	case services.KindInsufficientQuantity:
		return fiber.StatusUnprocessableEntity
	case services.KindInsufficientPayment:
		return fiber.StatusPaymentRequired
	case services.KindValidation:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler centralizes error responses and keeps messages sanitized.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// 1) Fiber errors (use their status code + message)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		// 2) Business rule failures
		var be *services.Error
		if errors.As(err, &be) {
			return c.Status(StatusFor(be.Kind)).JSON(fiber.Map{
				"message": be.Message,
				"kind":    be.Kind,
			})
		}

		// 3) DTO validation errors (422 + per-field info)
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			out := make(map[string]string, len(ve))
			for _, fe := range ve {
				out[fe.Field()] = fe.Tag()
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"message": "validation failed",
				"errors":  out,
			})
		}

		// 4) Unknown errors (500)
		log.Error("internal error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("request_id", c.Locals("requestid")),
			slog.String("error", err.Error()),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "internal server error",
		})
	}
}
