package router

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/BookForge/app/controllers"
	"github.com/ManuelReschke/BookForge/internal/pkg/cache"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
	"github.com/ManuelReschke/BookForge/internal/pkg/usercontext"
)

// NewLimiterStorage stores limiter hits in Redis so every API instance
// shares the same window. LIMITER_DB keeps the keys apart from the cache.
func NewLimiterStorage() fiber.Storage {
	opts := cache.Options()
	host, rawPort, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		host, rawPort = "localhost", "6379"
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		port = 6379
	}
	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: opts.Password,
		Database: env.GetEnvInt("LIMITER_DB", 1),
	})
}

// newLimiter limits requests per user, or per client IP for anonymous calls.
// A nil storage keeps the counters in memory.
func newLimiter(storage fiber.Storage, max int) fiber.Handler {
	if max <= 0 {
		max = 120
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			if id := usercontext.GetUserID(c); id != "" {
				return "user:" + id
			}
			return "ip:" + controllers.GetClientIP(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests, please slow down",
			})
		},
	})
}
