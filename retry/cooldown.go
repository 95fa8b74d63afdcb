package retry

import (
	"sync"
	"time"
)

// Cooldown gates re-attempts after a failure that must not be retried
// immediately, such as a wallet reporting an already-pending permission
// request. Tripping the cooldown refuses attempts until the window elapses;
// errors that allow immediate retry simply never trip it.
type Cooldown struct {
	mu     sync.Mutex
	window time.Duration
	until  time.Time

	// now is replaceable for tests.
	now func() time.Time
}

// NewCooldown creates a cooldown with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{window: window, now: time.Now}
}

// Trip starts (or restarts) the cooldown window.
func (c *Cooldown) Trip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = c.now().Add(c.window)
}

// Allow reports whether an attempt may proceed now.
func (c *Cooldown) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.now().Before(c.until)
}

// Remaining returns how long until attempts are allowed again; zero when the
// cooldown is open.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.until.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

// SetClock replaces the time source, for tests.
func (c *Cooldown) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
