package coordinator

import (
	"math"
	"sync"
	"time"

	"schulmanager-sync/internal/config"
)

// CooldownManager gates manual refreshes. It is purely in-memory; the gate
// resets on process restart.
type CooldownManager struct {
	mu      sync.Mutex
	minutes int
	last    time.Time
	now     func() time.Time
}

// NewCooldownManager clamps the configured cooldown into the allowed
// range; zero selects the default.
func NewCooldownManager(minutes int) *CooldownManager {
	if minutes == 0 {
		minutes = config.DefaultCooldownMinutes
	}
	if minutes < config.MinCooldownMinutes {
		minutes = config.MinCooldownMinutes
	}
	if minutes > config.MaxCooldownMinutes {
		minutes = config.MaxCooldownMinutes
	}
	return &CooldownManager{
		minutes: minutes,
		now:     time.Now,
	}
}

func (c *CooldownManager) period() time.Duration {
	return time.Duration(c.minutes) * time.Minute
}

// CanRefresh reports whether a manual refresh is allowed: either no
// refresh was recorded yet or the cooldown has elapsed.
func (c *CooldownManager) CanRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return true
	}
	return c.now().Sub(c.last) >= c.period()
}

// RemainingSeconds returns the ceiling of the remaining wait, or 0 when a
// refresh is allowed.
func (c *CooldownManager) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last.IsZero() {
		return 0
	}
	elapsed := c.now().Sub(c.last)
	if elapsed >= c.period() {
		return 0
	}
	return int(math.Ceil((c.period() - elapsed).Seconds()))
}

// RecordRefresh stamps now as the last manual refresh.
func (c *CooldownManager) RecordRefresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = c.now()
}
