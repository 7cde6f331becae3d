package engine

import "time"

// TimeSource supplies the block time (unix seconds) given to each call.
// Timelocks compare against it, so tests substitute a manual source.
type TimeSource interface {
	Now() int64
}

// SystemTime reads the wall clock.
type SystemTime struct{}

// Now returns the current unix time in seconds.
func (SystemTime) Now() int64 {
	return time.Now().Unix()
}
