package jobqueue

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

// jobQueueTestDB is flushed by the tests; nothing else should use it.
const jobQueueTestDB = 14

// testRedis connects to the first reachable Redis of CACHE_HOST, the compose
// service name and localhost, selects jobQueueTestDB and flushes it. The test
// is skipped when no server answers.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	port := env.GetEnv("CACHE_PORT", "6379")
	var lastErr error
	for _, host := range []string{env.GetEnv("CACHE_HOST", ""), "cache", "localhost"} {
		if host == "" {
			continue
		}
		client := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(host, port),
			Password: env.GetEnv("CACHE_PASSWORD", ""),
			DB:       jobQueueTestDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := client.Ping(ctx).Err()
		if err == nil {
			err = client.FlushDB(ctx).Err()
		}
		cancel()
		if err != nil {
			lastErr = err
			_ = client.Close()
			continue
		}
		t.Cleanup(func() {
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
		return client
	}
	t.Skipf("no reachable Redis for job queue tests: %v", lastErr)
	return nil
}
