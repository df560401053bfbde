package mint

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// RateLimiter enforces a per-validator request rate using a fixed-window
// token bucket. A validator that exceeds its window is refused until the
// window rolls over; there is no borrowing across windows.
type RateLimiter struct {
	mu      deadlock.Mutex
	limit   int
	window  time.Duration
	buckets map[string]*bucket
}

type bucket struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter builds a limiter allowing limit requests per validator per
// window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether validatorID may make another request at now,
// consuming one unit of its budget if so.
func (rl *RateLimiter) Allow(validatorID string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[validatorID]
	if !ok || now.Sub(b.windowStart) >= rl.window {
		b = &bucket{windowStart: now}
		rl.buckets[validatorID] = b
	}
	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}
