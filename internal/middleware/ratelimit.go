package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fdygg/growledger/internal/model"
	"github.com/fdygg/growledger/internal/service"
)

// RateLimiter implements per-principal sliding window rate limiting.
// Quotas come from the principal record, so limits can differ per caller.
type RateLimiter struct {
	mu          sync.Mutex
	counters    map[string]*window
	lastCleanup time.Time
}

type window struct {
	count       int
	windowStart time.Time
	resetAt     time.Time
	lastSeen    time.Time
}

const (
	cleanupInterval    = 5 * time.Minute
	expiredWindowGrace = 10 * time.Minute
	staleWindowTTL     = 24 * time.Hour
)

// NewRateLimiter creates a new in-memory rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		counters:    make(map[string]*window),
		lastCleanup: time.Now(),
	}
}

// Allow checks if the principal is within its rate limit.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) Allow(principal *model.Principal) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowDuration := time.Duration(principal.RateLimitWindow) * time.Second

	w, exists := rl.counters[principal.Username]
	if !exists || now.After(w.resetAt) {
		rl.counters[principal.Username] = &window{
			count:       1,
			windowStart: now,
			resetAt:     now.Add(windowDuration),
			lastSeen:    now,
		}
		rl.cleanupLocked(now)
		return true, principal.RateLimitMax - 1, now.Add(windowDuration)
	}

	w.lastSeen = now
	resetAt := w.resetAt

	if w.count >= principal.RateLimitMax {
		rl.cleanupLocked(now)
		return false, 0, resetAt
	}

	w.count++
	rl.cleanupLocked(now)
	return true, principal.RateLimitMax - w.count, resetAt
}

// Remaining returns the remaining request count without incrementing.
func (rl *RateLimiter) Remaining(principal *model.Principal) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, exists := rl.counters[principal.Username]
	if !exists || now.After(w.resetAt) {
		rl.cleanupLocked(now)
		return principal.RateLimitMax
	}

	w.lastSeen = now
	remaining := principal.RateLimitMax - w.count
	if remaining < 0 {
		rl.cleanupLocked(now)
		return 0
	}

	rl.cleanupLocked(now)
	return remaining
}

// RateLimitMiddleware returns middleware that enforces per-principal rate
// limits. Requests without an authenticated identity pass through untouched.
func RateLimitMiddleware(rl *RateLimiter, credentials *service.CredentialService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := GetIdentity(r.Context())
			if ident == nil {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := credentials.Get(r.Context(), ident.Username)
			if err != nil {
				service.RespondError(w, r, err)
				return
			}

			if principal.RateLimitMax <= 0 || principal.RateLimitWindow <= 0 {
				respondError(w, r, http.StatusInternalServerError, "InternalServerError", "Principal rate limit configuration is invalid")
				return
			}

			allowed, remaining, resetAt := rl.Allow(principal)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(principal.RateLimitMax))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				respondError(w, r, http.StatusTooManyRequests, "RateLimitError", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}

	for username, w := range rl.counters {
		if now.Sub(w.lastSeen) > staleWindowTTL || now.After(w.resetAt.Add(expiredWindowGrace)) {
			delete(rl.counters, username)
		}
	}

	rl.lastCleanup = now
}
