package serverutils

import (
	"errors"

	"ai-studytool-be/internal/dto"
	"ai-studytool-be/internal/pkg/apperror"
	"ai-studytool-be/pkg/credit"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into the JSON envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

func WriteError(ctx *fiber.Ctx, err error) error {
	status, body := MapError(err)
	return ctx.Status(status).JSON(body)
}

// MapError is the single translation from error values to status and envelope.
func MapError(err error) (int, BaseResponse[any]) {
	var insufficient *credit.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		return fiber.StatusPaymentRequired, ErrorResponseWithData(
			fiber.StatusPaymentRequired, "insufficient_credits", "Insufficient credits",
			dto.InsufficientCreditsData{Required: insufficient.Required, Available: insufficient.Available},
		)
	}

	var cooldown *credit.CooldownActiveError
	if errors.As(err, &cooldown) {
		return fiber.StatusTooManyRequests, ErrorResponseWithData(
			fiber.StatusTooManyRequests, "cooldown_active", cooldown.Error(),
			dto.CooldownData{RemainingSeconds: cooldown.RemainingSeconds},
		)
	}

	switch {
	case errors.Is(err, credit.ErrToolDisabled):
		return fiber.StatusForbidden, ErrorResponseWithData(fiber.StatusForbidden, "tool_disabled", "This tool is currently disabled", nil)
	case errors.Is(err, credit.ErrInvalidTool):
		return fiber.StatusBadRequest, ErrorResponseWithData(fiber.StatusBadRequest, "invalid_tool", "Invalid or unconfigured tool", nil)
	case errors.Is(err, credit.ErrRequestNotPending):
		return fiber.StatusGatewayTimeout, ErrorResponseWithData(fiber.StatusGatewayTimeout, "request_expired", "The request took too long and was cancelled. No credits were charged", nil)
	case errors.Is(err, credit.ErrWalletNotFound):
		return fiber.StatusNotFound, ErrorResponseWithData(fiber.StatusNotFound, "not_found", "Resource not found", nil)
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, ErrorResponseWithData(fiber.StatusBadRequest, "validation_error", "Validation failed", validationErr.Fields)
	}

	if appErr, ok := apperror.As(err); ok {
		return appErr.Code, ErrorResponseWithData(appErr.Code, appErr.Type, appErr.Message, nil)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, ErrorResponse(fiberErr.Code, fiberErr.Message)
	}

	return fiber.StatusInternalServerError, ErrorResponse(fiber.StatusInternalServerError, "Internal server error")
}
