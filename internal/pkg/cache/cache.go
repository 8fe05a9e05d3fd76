package cache

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

const opTimeout = 2 * time.Second

var (
	mu     sync.Mutex
	client *redis.Client
)

// Options reads the Redis connection settings from the environment.
func Options() *redis.Options {
	return &redis.Options{
		Addr:     net.JoinHostPort(env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       env.GetEnvInt("CACHE_DB", 0),
	}
}

// SetupCache connects the shared client. An unreachable server is logged and
// not fatal; callers see the error on their first command.
func SetupCache() {
	c := redis.NewClient(Options())

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: cache at %s not reachable: %v", c.Options().Addr, err)
	} else {
		log.Printf("Connected to cache at %s", c.Options().Addr)
	}

	mu.Lock()
	client = c
	mu.Unlock()
}

// GetClient returns the shared client, connecting on first use.
func GetClient() *redis.Client {
	mu.Lock()
	c := client
	mu.Unlock()
	if c == nil {
		SetupCache()
		mu.Lock()
		c = client
		mu.Unlock()
	}
	return c
}

// Set stores value under key for the given expiration.
func Set(key string, value interface{}, expiration time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get returns the value of key, or redis.Nil when it is not set.
func Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return GetClient().Get(ctx, key).Result()
}
