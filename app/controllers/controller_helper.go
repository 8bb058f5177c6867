package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/billing"
)

var validate = validator.New()

// jsonError writes the error envelope shared by all JSON endpoints.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// parseAndValidate decodes the JSON body into dst and runs struct validation.
func parseAndValidate(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return "Invalid request: " + strings.Join(parts, ", ")
}

// billingError maps billing failures onto HTTP status codes.
func billingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidPlan):
		return jsonError(c, fiber.StatusBadRequest, "invalid_plan", "Invalid plan")
	case errors.Is(err, billing.ErrUnknownProvider):
		return jsonError(c, fiber.StatusBadRequest, "invalid_method", "Unsupported payment method")
	case errors.Is(err, billing.ErrProviderUnconfigured):
		return jsonError(c, fiber.StatusServiceUnavailable, "provider_unconfigured", "Payment provider is not configured")
	case errors.Is(err, billing.ErrProvider):
		return jsonError(c, fiber.StatusBadGateway, "provider_error", "Payment provider request failed")
	case errors.Is(err, billing.ErrTransactionNotFound):
		return jsonError(c, fiber.StatusNotFound, "transaction_not_found", "No pending transaction found")
	default:
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Payment processing failed")
	}
}
