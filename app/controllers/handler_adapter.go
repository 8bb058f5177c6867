package controllers

import "github.com/gofiber/fiber/v2"

// Adapter functions so routers can register plain handlers

// HandleCreatePayment - Adapter for purchase initiation
func HandleCreatePayment(c *fiber.Ctx) error {
	return GetPaymentController().HandleCreatePayment(c)
}

// HandleVerifyCardPayment - Adapter for card checkout verification
func HandleVerifyCardPayment(c *fiber.Ctx) error {
	return GetPaymentController().HandleVerifyCardPayment(c)
}

// HandleVerifyOrderPayment - Adapter for order gateway verification
func HandleVerifyOrderPayment(c *fiber.Ctx) error {
	return GetPaymentController().HandleVerifyOrderPayment(c)
}

// HandleListTransactions - Adapter for the purchase history
func HandleListTransactions(c *fiber.Ctx) error {
	return GetPaymentController().HandleListTransactions(c)
}

// HandleGetCredits - Adapter for the credit balance
func HandleGetCredits(c *fiber.Ctx) error {
	return GetPaymentController().HandleGetCredits(c)
}

// HandleCreditEvents - Adapter for the credit event stream
func HandleCreditEvents(c *fiber.Ctx) error {
	return GetPaymentController().HandleCreditEvents(c)
}

// HandleClerkWebhook - Adapter for identity webhooks
func HandleClerkWebhook(c *fiber.Ctx) error {
	return GetWebhookController().HandleClerkWebhook(c)
}
