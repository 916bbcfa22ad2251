package utils

import (
	"sync"
	"time"
)

// RateLimiter is an in-process token bucket. The websocket layer uses it per
// connection; HTTP rate limiting goes through redis instead.
type RateLimiter struct {
	rate       int
	period     time.Duration
	tokens     int
	maxTokens  int
	lastRefill time.Time
	mutex      sync.Mutex
}

func NewRateLimiter(rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		period:     period,
		tokens:     rate,
		maxTokens:  rate,
		lastRefill: time.Now(),
	}
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill)
	refill := int(elapsed.Nanoseconds() * int64(rl.rate) / rl.period.Nanoseconds())
	if refill > 0 {
		rl.tokens += refill
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now
	}

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) Remaining() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return rl.tokens
}
