package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aretechltd/mospay/internal/interfaces/rest"
)

// RateLimiter applies a token bucket per caller. Callers are keyed by the
// X-App-ID header when present (the token endpoint always sends it),
// otherwise by remote IP. Buckets idle past the expiry are dropped by
// CleanupLoop so the map stays bounded.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit  rate.Limit
	burst  int
	logger *slog.Logger
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(requestsPerSec float64, burst int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(requestsPerSec),
		burst:   burst,
		logger:  logger,
	}
}

// Middleware rejects callers that exceed their bucket with a 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.keyFor(r)

		if !rl.allow(key) {
			rl.logger.Warn("rate limit exceeded", "caller", key, "path", r.URL.Path)
			rest.WriteJSON(w, http.StatusTooManyRequests, rest.ErrorResponse{
				Status:  "429",
				Message: "Rate limit exceeded",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) keyFor(r *http.Request) string {
	if appID := r.Header.Get("X-App-ID"); appID != "" {
		return "app:" + appID
	}
	return "ip:" + remoteIP(r)
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = time.Now()

	return b.limiter.Allow()
}

// CleanupLoop drops buckets that have been idle for three intervals.
// It returns when ctx is cancelled.
func (rl *RateLimiter) CleanupLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanup(3 * interval)
		}
	}
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}
