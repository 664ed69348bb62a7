package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	apperrors "github.com/t3clone/t3chat/server/internal/errors"
)

// RateLimiter keeps one token bucket per key, usually the user id.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*limiterEntry
	rate   rate.Limit
	burst  int
	now    func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limits: make(map[string]*limiterEntry),
		rate:   rate.Every(time.Minute / time.Duration(max(perMinute, 1))),
		burst:  max(burst, 1),
		now:    time.Now,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.limits[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limits[key] = entry
	}
	entry.lastSeen = rl.now()
	return entry.limiter
}

// Allow checks if a request is allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Cleanup drops limiters not used within idle and returns how many were removed.
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for key, entry := range rl.limits {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limits, key)
			removed++
		}
	}
	return removed
}

// CleanupLoop runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) CleanupLoop(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup(idle)
		}
	}
}

// Middleware rejects requests over the limit with 429. keyFunc picks the bucket;
// an empty key falls back to the client IP.
func (rl *RateLimiter) Middleware(keyFunc func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := ""
			if keyFunc != nil {
				key = keyFunc(c)
			}
			if key == "" {
				key = "ip:" + c.RealIP()
			}
			if !rl.Allow(key) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"code":    string(apperrors.ErrCodeRateLimitExceeded),
					"message": "too many requests, slow down",
				})
			}
			return next(c)
		}
	}
}
