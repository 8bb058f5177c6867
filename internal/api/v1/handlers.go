package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/PhotoAI/app/controllers"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/billing"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetPlans returns the plan table. It is public so the pricing page can
// render before sign-in.
func (s *APIServer) GetPlans(c *fiber.Ctx) error {
	plans := billing.Plans()
	out := PlanList{Plans: make([]PlanInfo, 0, len(plans))}
	for _, p := range plans {
		out.Plans = append(out.Plans, PlanInfo{Key: p.Key, Title: p.Title(), Price: p.Price, Credits: p.Credits})
	}
	return c.Status(fiber.StatusOK).JSON(out)
}

func (s *APIServer) PostPaymentCreate(c *fiber.Ctx) error {
	return controllers.HandleCreatePayment(c)
}

func (s *APIServer) PostPaymentVerify(c *fiber.Ctx) error {
	return controllers.HandleVerifyCardPayment(c)
}

func (s *APIServer) PostPaymentRazorpayVerify(c *fiber.Ctx) error {
	return controllers.HandleVerifyOrderPayment(c)
}

func (s *APIServer) GetPaymentTransactions(c *fiber.Ctx) error {
	return controllers.HandleListTransactions(c)
}

func (s *APIServer) GetPaymentCredits(c *fiber.Ctx) error {
	return controllers.HandleGetCredits(c)
}

// GetPaymentCreditEvents streams credit updates (text/event-stream).
func (s *APIServer) GetPaymentCreditEvents(c *fiber.Ctx) error {
	return controllers.HandleCreditEvents(c)
}
