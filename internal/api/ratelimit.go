package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/watchdog-hq/sentinel/internal/auth"
)

// tokenLimiter rate-limits by the bearer token a request carries, the way
// albapepper-scoracle-data's ipLimiter rate-limits by client IP — keyed by
// token here since a noisy project, not a noisy IP, is the failure mode a
// shared pulse-ingestion endpoint needs to contain.
type tokenLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newTokenLimiter(requestsPerMinute, burst int) *tokenLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 120
	}
	if burst <= 0 {
		burst = requestsPerMinute / 4
		if burst < 1 {
			burst = 1
		}
	}
	return &tokenLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:    burst,
	}
}

func (l *tokenLimiter) allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// rateLimitMiddleware returns middleware that rate-limits pulse ingestion
// per bearer token, falling back to the remote address for unauthenticated
// requests (which will be rejected downstream anyway, but must not share an
// unbounded global bucket).
func rateLimitMiddleware(limiter *tokenLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := auth.TokenFromRequest(r)
			if key == "" {
				key = r.RemoteAddr
			}
			if !limiter.allow(key) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
