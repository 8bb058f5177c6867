package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/middleware"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies are the collaborators routes need beyond the global controllers.
type Dependencies struct {
	Verifier *middleware.TokenVerifier
	Users    middleware.UserLookup
	// LimiterStorage backs the /api rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	// RateLimit is the number of /api requests allowed per client per minute.
	RateLimit int
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// Webhooks first so they are matched before the /api limiter group.
	setup(app, NewHttpRouter(), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
