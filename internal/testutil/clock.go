package testutil

import "sync"

// DefaultGenesis is the block time ManualTime starts at when given 0:
// 2024-01-01T00:00:00Z.
const DefaultGenesis int64 = 1704067200

// ManualTime is a block clock that only moves when told to. It satisfies
// engine.TimeSource, which lets tests step over transfer timelocks
// without sleeping.
//
// Safe for concurrent use.
type ManualTime struct {
	mu  sync.Mutex
	now int64
}

// NewManualTime creates a clock reading start (unix seconds).
func NewManualTime(start int64) *ManualTime {
	if start == 0 {
		start = DefaultGenesis
	}
	return &ManualTime{now: start}
}

// Now returns the current block time.
func (c *ManualTime) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by seconds and returns the new time.
// Negative values are ignored; block time never goes backwards.
func (c *ManualTime) Advance(seconds int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seconds > 0 {
		c.now += seconds
	}
	return c.now
}

// Set jumps to t if it is not in the past.
func (c *ManualTime) Set(t int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}
