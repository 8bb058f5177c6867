package cache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/ManuelReschke/PhotoAI/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// Options returns the redis connection options from CACHE_* settings.
func Options() *redis.Options {
	db, _ := strconv.Atoi(env.GetEnv("CACHE_DB", "0"))
	return &redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       db,
	}
}

// SetupCache initializes the connection to the cache server
func SetupCache() {
	client = redis.NewClient(Options())

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to cache: %v", err)
	} else {
		log.Printf("Successfully connected to cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Available reports whether the cache answers a ping within timeout.
func Available(timeout time.Duration) bool {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return GetClient().Ping(pctx).Err() == nil
}
