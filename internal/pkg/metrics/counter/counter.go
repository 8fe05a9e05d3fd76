package counter

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/BookForge/internal/pkg/cache"
)

const (
	generationKeyPrefix = "generation:counters:"
	counterTTL          = 40 * 24 * time.Hour
)

// Generation kinds counted per day.
const (
	KindOutlines = "outlines"
	KindChapter  = "chapter"
	KindDirector = "director"
	KindFailed   = "failed"
)

// AddGeneration increments the daily counter for a generation kind in Redis
func AddGeneration(kind string) error {
	return addGeneration(cache.GetClient(), time.Now(), kind)
}

// Record increments a counter and only logs failures.
func Record(kind string) {
	if err := AddGeneration(kind); err != nil {
		log.Debugf("[Counter] Failed to count %s generation: %v", kind, err)
	}
}

// Snapshot returns all counters of the given day.
func Snapshot(day time.Time) (map[string]int64, error) {
	return snapshot(cache.GetClient(), day)
}

func addGeneration(rdb *redis.Client, now time.Time, kind string) error {
	ctx := context.Background()
	key := dayKey(now)
	pipe := rdb.TxPipeline()
	pipe.HIncrBy(ctx, key, kind, 1)
	pipe.Expire(ctx, key, counterTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func snapshot(rdb *redis.Client, day time.Time) (map[string]int64, error) {
	data, err := rdb.HGetAll(context.Background(), dayKey(day)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

func dayKey(t time.Time) string {
	return generationKeyPrefix + t.UTC().Format("20060102")
}
