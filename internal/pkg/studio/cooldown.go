package studio

import (
	"time"
)

// ChapterCooldown is the pause enforced after each written chapter.
const ChapterCooldown = 15 * time.Second

// Cooldown is a single countdown. Starting it again replaces the running
// countdown instead of extending it.
type Cooldown struct {
	duration time.Duration
	now      func() time.Time
	until    time.Time
}

// NewCooldown creates an inactive cooldown. now defaults to time.Now.
func NewCooldown(d time.Duration, now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{duration: d, now: now}
}

// Start begins the countdown at the current time.
func (c *Cooldown) Start() {
	c.until = c.now().Add(c.duration)
}

// Remaining returns the whole seconds left, rounded up, never below zero.
func (c *Cooldown) Remaining() int {
	left := c.until.Sub(c.now())
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// Ready reports whether a new request may be dispatched.
func (c *Cooldown) Ready() bool {
	return !c.now().Before(c.until)
}
