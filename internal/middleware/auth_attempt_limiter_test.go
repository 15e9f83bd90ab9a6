package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthAttemptLimiterBlocksAfterThreshold(t *testing.T) {
	limiter := NewAuthAttemptLimiter(3, time.Minute, 150*time.Millisecond)
	key := "bearer:198.51.100.1"

	if !limiter.allow(key) {
		t.Fatal("expected initial request to be allowed")
	}

	limiter.registerFailure(key)
	limiter.registerFailure(key)
	limiter.registerFailure(key)

	if limiter.allow(key) {
		t.Fatal("expected request to be blocked after max failures")
	}

	time.Sleep(200 * time.Millisecond)
	if !limiter.allow(key) {
		t.Fatal("expected request to be allowed after block duration")
	}
}

func TestAuthAttemptLimiterSuccessResetsFailures(t *testing.T) {
	limiter := NewAuthAttemptLimiter(2, time.Minute, time.Minute)
	key := "token:203.0.113.5"

	limiter.registerFailure(key)
	limiter.registerSuccess(key)
	limiter.registerFailure(key)

	if !limiter.allow(key) {
		t.Fatal("expected success to clear previous failures")
	}
}

func TestAuthAttemptLimitMiddleware(t *testing.T) {
	newClient := func(handler http.Handler, remoteAddr string) func() int {
		return func() int {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
			req.RemoteAddr = remoteAddr
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec.Code
		}
	}

	t.Run("repeated 401s lead to 429", func(t *testing.T) {
		limiter := NewAuthAttemptLimiter(2, time.Minute, time.Minute)
		handler := AuthAttemptLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		do := newClient(handler, "203.0.113.9:4321")

		for i := 0; i < 2; i++ {
			if got := do(); got != http.StatusUnauthorized {
				t.Fatalf("attempt %d: expected 401, got %d", i+1, got)
			}
		}
		if got := do(); got != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after repeated failures, got %d", got)
		}
	})

	t.Run("success clears the failure record", func(t *testing.T) {
		limiter := NewAuthAttemptLimiter(2, time.Minute, time.Minute)
		status := http.StatusUnauthorized
		handler := AuthAttemptLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		do := newClient(handler, "203.0.113.10:4321")

		if got := do(); got != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", got)
		}
		status = http.StatusOK
		if got := do(); got != http.StatusOK {
			t.Fatalf("expected 200, got %d", got)
		}
		status = http.StatusUnauthorized
		if got := do(); got != http.StatusUnauthorized {
			t.Fatalf("expected 401 after clear, got %d", got)
		}
		// Without the clear this fourth attempt would already be blocked.
		if got := do(); got != http.StatusUnauthorized {
			t.Fatalf("expected second post-clear failure to pass through, got %d", got)
		}
	})

	t.Run("clients are keyed by address", func(t *testing.T) {
		limiter := NewAuthAttemptLimiter(1, time.Minute, time.Minute)
		handler := AuthAttemptLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		blocked := newClient(handler, "203.0.113.11:4321")
		other := newClient(handler, "203.0.113.12:4321")

		blocked()
		if got := blocked(); got != http.StatusTooManyRequests {
			t.Fatalf("expected 429 for blocked client, got %d", got)
		}
		if got := other(); got != http.StatusUnauthorized {
			t.Fatalf("expected other client to pass through, got %d", got)
		}
	})
}
