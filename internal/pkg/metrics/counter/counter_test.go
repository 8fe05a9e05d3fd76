package counter

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/BookForge/internal/pkg/env"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", env.GetEnv("CACHE_HOST", "localhost"), env.GetEnv("CACHE_PORT", "6379")),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       13,
	})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not reachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDayKey(t *testing.T) {
	day := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "generation:counters:20260309", dayKey(day))
}

func TestAddGenerationAndSnapshot(t *testing.T) {
	rdb := testRedis(t)
	day := time.Date(2001, 1, 2, 12, 0, 0, 0, time.UTC)
	rdb.Del(context.Background(), dayKey(day))
	t.Cleanup(func() { rdb.Del(context.Background(), dayKey(day)) })

	require.NoError(t, addGeneration(rdb, day, KindOutlines))
	require.NoError(t, addGeneration(rdb, day, KindChapter))
	require.NoError(t, addGeneration(rdb, day, KindChapter))

	got, err := snapshot(rdb, day)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got[KindOutlines])
	assert.Equal(t, int64(2), got[KindChapter])
	assert.Zero(t, got[KindDirector])
}
