package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
)

// RateLimiter implements a sliding-window in-memory rate limiter keyed by an
// arbitrary string (user ID, IP, ...).
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewRateLimiter creates a limiter allowing at most limit requests per window
// for a given key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	kept := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.requests[key] = kept
		return false
	}

	rl.requests[key] = append(kept, now)
	return true
}

// Cleanup drops keys whose entries have all aged out of the window. Call
// periodically to bound memory.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, times := range rl.requests {
		kept := times[:0]
		for _, t := range times {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(rl.requests, key)
		} else {
			rl.requests[key] = kept
		}
	}
}

// keyFromUser prefers the X-User-ID header and falls back to the client IP,
// so authenticated traffic is limited per user while anonymous traffic is
// limited per address.
func keyFromUser(c fiber.Ctx) string {
	if uid := c.Get("X-User-ID"); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.IP()
}

// limitHandler wraps a limiter into a Fiber middleware using the given key
// function.
func limitHandler(rl *RateLimiter, keyFn func(fiber.Ctx) string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if !rl.Allow(keyFn(c)) {
			c.Set("Retry-After", fmt.Sprintf("%d", int(rl.window.Seconds())))
			return ErrorResponse(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}

// NewSubmitRateLimit limits contribution submissions to 30 per minute per
// user (or per IP for anonymous callers).
func NewSubmitRateLimit() fiber.Handler {
	return limitHandler(NewRateLimiter(30, time.Minute), keyFromUser)
}

// NewSettleRateLimit limits settlement attempts to 10 per minute per user.
func NewSettleRateLimit() fiber.Handler {
	return limitHandler(NewRateLimiter(10, time.Minute), keyFromUser)
}

// NewReadRateLimit limits read endpoints (stats, proofs) to 60 per minute
// per IP.
func NewReadRateLimit() fiber.Handler {
	return limitHandler(NewRateLimiter(60, time.Minute), func(c fiber.Ctx) string {
		return "ip:" + c.IP()
	})
}
