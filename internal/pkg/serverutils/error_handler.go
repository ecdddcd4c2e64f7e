package serverutils

import (
	"errors"

	"rag-chat-be/pkg/rag/workflow"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts service errors into the JSON envelope with
// the right HTTP status and error code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse("VALIDATION_ERROR", verr.Error()))
		}

		var ferr *fiber.Error
		if errors.As(err, &ferr) {
			return c.Status(ferr.Code).JSON(ErrorResponse("HTTP_ERROR", ferr.Message))
		}

		code := workflow.ErrorCode(err)
		return c.Status(statusForCode(code)).JSON(ErrorResponse(code, err.Error()))
	}
}

func statusForCode(code string) int {
	switch code {
	case workflow.CodeSessionNotFound:
		return fiber.StatusNotFound
	case workflow.CodeRateLimitExceeded:
		return fiber.StatusTooManyRequests
	case workflow.CodeLLMAuthError:
		return fiber.StatusBadGateway
	case workflow.CodeGenerationTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
