package router

import (
	"github.com/ManuelReschke/PhotoAI/app/controllers"

	"github.com/gofiber/fiber/v2"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Identity provider webhooks. The /api alias exists for dashboards that
	// were configured against the API host.
	app.Post("/webhook/clerk", controllers.HandleClerkWebhook)
	app.Post("/api/webhook/clerk", controllers.HandleClerkWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
