package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// ServerInterface is the set of operations served under /api/v1.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (GET /plans)
	GetPlans(c *fiber.Ctx) error
	// (POST /payment/create)
	PostPaymentCreate(c *fiber.Ctx) error
	// (POST /payment/verify)
	PostPaymentVerify(c *fiber.Ctx) error
	// (POST /payment/razorpay/verify)
	PostPaymentRazorpayVerify(c *fiber.Ctx) error
	// (GET /payment/transactions)
	GetPaymentTransactions(c *fiber.Ctx) error
	// (GET /payment/credits)
	GetPaymentCredits(c *fiber.Ctx) error
	// (GET /payment/credits/events)
	GetPaymentCreditEvents(c *fiber.Ctx) error
}

// FiberServerOptions configures RegisterHandlersWithOptions.
type FiberServerOptions struct {
	BaseURL string
	// Auth guards every operation that requires a bearer token.
	Auth fiber.Handler
}

// RegisterHandlersWithOptions mounts the operations on router.
func RegisterHandlersWithOptions(router fiber.Router, si ServerInterface, options FiberServerOptions) {
	secured := func(h fiber.Handler) []fiber.Handler {
		if options.Auth == nil {
			return []fiber.Handler{h}
		}
		return []fiber.Handler{options.Auth, h}
	}

	router.Get(options.BaseURL+"/ping", si.GetPing)
	router.Get(options.BaseURL+"/plans", si.GetPlans)

	router.Post(options.BaseURL+"/payment/create", secured(si.PostPaymentCreate)...)
	router.Post(options.BaseURL+"/payment/verify", secured(si.PostPaymentVerify)...)
	router.Post(options.BaseURL+"/payment/razorpay/verify", secured(si.PostPaymentRazorpayVerify)...)
	router.Get(options.BaseURL+"/payment/transactions", secured(si.GetPaymentTransactions)...)
	router.Get(options.BaseURL+"/payment/credits", secured(si.GetPaymentCredits)...)
	router.Get(options.BaseURL+"/payment/credits/events", secured(si.GetPaymentCreditEvents)...)
}
