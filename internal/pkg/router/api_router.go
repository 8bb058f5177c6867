package router

import (
	"strings"
	"time"

	apiv1 "github.com/ManuelReschke/PhotoAI/internal/api/v1"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

const defaultRateLimit = 120

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	limit := h.deps.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		Storage:    h.deps.LimiterStorage,
		Next: func(c *fiber.Ctx) bool {
			// webhooks are signed and retried by the sender
			return strings.HasPrefix(c.Path(), "/api/webhook/")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlersWithOptions(v1, apiServer, apiv1.FiberServerOptions{
		Auth: middleware.BearerAuthMiddleware(h.deps.Verifier, h.deps.Users),
	})
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
