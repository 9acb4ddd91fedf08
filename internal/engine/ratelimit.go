package engine

import (
	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec. The burst is set to 1 MiB so a full copy buffer passes in one
// wait; slower limits shrink the burst, and the copy loop clamps its chunks
// to it.
func NewBWLimiter(bytesPerSec int64) *rate.Limiter {
	burst := 1 << 20
	if bytesPerSec < int64(burst) {
		burst = max(int(bytesPerSec), 1)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}
