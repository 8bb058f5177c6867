package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/identity"
)

// WebhookController receives identity-provider webhooks.
type WebhookController struct {
	ingestor *identity.Ingestor
}

func NewWebhookController(ingestor *identity.Ingestor) *WebhookController {
	return &WebhookController{ingestor: ingestor}
}

// HandleClerkWebhook verifies and applies a user lifecycle delivery.
func (wc *WebhookController) HandleClerkWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	headers := identity.Headers{
		ID:        c.Get(identity.HeaderID),
		Timestamp: c.Get(identity.HeaderTimestamp),
		Signature: c.Get(identity.HeaderSignature),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := wc.ingestor.HandleEvent(ctx, rawBody, headers)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrUnconfigured):
			return jsonError(c, fiber.StatusServiceUnavailable, "webhook_unconfigured", "Webhook signing secret is not configured")
		case errors.Is(err, identity.ErrSignatureInvalid):
			return jsonError(c, fiber.StatusBadRequest, "invalid_signature", err.Error())
		case errors.Is(err, identity.ErrInvalidPayload):
			return jsonError(c, fiber.StatusBadRequest, "invalid_payload", err.Error())
		default:
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Internal Server Error")
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":   true,
		"message":   "Webhook received",
		"duplicate": res.Duplicate,
		"ignored":   res.Ignored,
	})
}

var webhookController *WebhookController

// InitializeWebhookController initializes the global webhook controller
func InitializeWebhookController(ingestor *identity.Ingestor) {
	webhookController = NewWebhookController(ingestor)
}

// GetWebhookController returns the global webhook controller instance
func GetWebhookController() *WebhookController {
	if webhookController == nil {
		panic("Webhook controller not initialized. Call InitializeWebhookController first.")
	}
	return webhookController
}
