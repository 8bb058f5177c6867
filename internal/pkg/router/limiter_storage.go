package router

import (
	"net"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/cache"
)

// limiterDatabase keeps rate limit counters apart from the cache and event bus (DB 0).
const limiterDatabase = 2

// NewLimiterStorage returns a redis-backed storage for the /api limiter that
// shares the cache server configuration.
func NewLimiterStorage() fiber.Storage {
	opts := cache.Options()
	host := "localhost"
	port := 6379
	if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
		host = h
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
