package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/BookForge/internal/pkg/jobqueue"
)

// StatsController reports generation counters and export queue depth for
// operators. It is mounted next to /metrics, not on the public API.
type StatsController struct {
	generations func(day time.Time) (map[string]int64, error)
	jobs        func(ctx context.Context) (jobqueue.Stats, error)
	now         func() time.Time
}

func NewStatsController(generations func(day time.Time) (map[string]int64, error), jobs func(ctx context.Context) (jobqueue.Stats, error)) *StatsController {
	return &StatsController{generations: generations, jobs: jobs, now: time.Now}
}

// HandleStats returns the counters of ?day=YYYY-MM-DD (default today, UTC).
func (sc *StatsController) HandleStats(c *fiber.Ctx) error {
	day := sc.now().UTC()
	if raw := c.Query("day"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "validation_failed", "day must be YYYY-MM-DD")
		}
		day = parsed
	}

	generations, err := sc.generations(day)
	if err != nil {
		log.Errorf("[Stats] Failed to read generation counters: %v", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "Counters unavailable")
	}
	jobs, err := sc.jobs(c.UserContext())
	if err != nil {
		log.Errorf("[Stats] Failed to read queue stats: %v", err)
		return jsonError(c, fiber.StatusServiceUnavailable, "unavailable", "Queue stats unavailable")
	}

	return c.JSON(fiber.Map{
		"day":         day.Format(time.DateOnly),
		"generations": generations,
		"jobs":        jobs,
	})
}
