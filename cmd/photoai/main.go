package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ManuelReschke/PhotoAI/app/controllers"
	"github.com/ManuelReschke/PhotoAI/app/repository"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/billing"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/cache"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/database"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/events"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/identity"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/middleware"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/photoai to project root
		"../../../", // Fallback
	}

	// Find the directory holding the API docs, if any
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs/v1/openapi.yml"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	// repositories and domain services
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	cacheUp := cache.Available(2 * time.Second)
	var bus events.Bus
	billingOpts := []billing.Option{}
	if cacheUp {
		bus = events.NewRedisBus(cache.GetClient())
		billingOpts = append(billingOpts, billing.WithRecorder(counter.New(cache.GetClient())))
	} else {
		log.Printf("Cache unavailable, credit events are delivered in-process only")
		bus = events.NewMemoryBus()
	}
	billingOpts = append(billingOpts, billing.WithPublisher(bus))

	billingService := billing.NewServiceFromDB(database.GetDB(), billing.NewProvidersFromEnv(), billingOpts...)
	controllers.InitializePaymentController(billingService, bus)
	controllers.InitializeWebhookController(identity.NewIngestorFromEnv(repos))

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20,
	})

	// recovery, request ids and logging
	app.Use(recover.New(), requestid.New(), logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: env.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// fiber metrics
	if user, ok := env.RequireEnv("METRICS_USER"); ok {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				user: env.GetEnv("METRICS_PASSWORD", ""),
			},
		}), monitor.New())
	}

	// SWAGGER / OPENAPI
	if basePath != "" {
		openAPICfg := swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}
		app.Use(swagger.New(openAPICfg))
	} else {
		log.Printf("OpenAPI document not found, /docs/api disabled")
	}

	// ROUTER
	deps := router.Dependencies{
		Verifier:  middleware.NewTokenVerifierFromEnv(),
		Users:     repos.User,
		RateLimit: rateLimitFromEnv(),
	}
	if cacheUp {
		deps.LimiterStorage = router.NewLimiterStorage()
	}
	router.InstallRouter(app, deps)

	return app
}

func rateLimitFromEnv() int {
	n, err := strconv.Atoi(strings.TrimSpace(env.GetEnv("API_RATE_LIMIT", "120")))
	if err != nil {
		return 0
	}
	return n
}
