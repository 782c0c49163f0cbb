package testhelpers

import (
	"sync"
	"time"
)

// DefaultTestNow is the fixed "now" every FakeClock starts at.
var DefaultTestNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// FakeClock satisfies utils.Clock and only moves when told to.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// TestWindow returns a two-hour service window starting `lead` after the
// clock's current time.
func (h *TestHelper) TestWindow(lead time.Duration) (time.Time, time.Time) {
	start := h.Clock.Now().Add(lead).Truncate(time.Minute)
	return start, start.Add(2 * time.Hour)
}
