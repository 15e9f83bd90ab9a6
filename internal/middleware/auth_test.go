package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fdygg/growledger/internal/service"
	"github.com/fdygg/growledger/internal/store"
)

func newAuthFixture(t *testing.T) (func(http.Handler) http.Handler, string) {
	t.Helper()

	mem := store.NewMemory()
	credentials := service.NewCredentialService(mem, 100, 60)
	tokens := service.NewTokenService(mem, credentials, time.Minute, 24*time.Hour, time.Hour)

	cred, err := credentials.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create credential: %v", err)
	}
	issued, err := tokens.Issue(context.Background(), "alice", cred.APIKey, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	return Auth(tokens, DefaultPublicPaths(), nil), issued.AccessToken
}

func TestAuthMiddleware(t *testing.T) {
	authed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident := GetIdentity(r.Context())
		if ident == nil {
			http.Error(w, "no identity", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(ident.Username))
	})

	t.Run("public path passes without token", func(t *testing.T) {
		mw, _ := newAuthFixture(t)
		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing header rejected", func(t *testing.T) {
		mw, _ := newAuthFixture(t)
		handler := mw(authed)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/balance/alice", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}

		var body map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["type"] != "AuthenticationError" {
			t.Fatalf("unexpected error type: %v", body["type"])
		}
		if body["path"] != "/api/v1/balance/alice" {
			t.Fatalf("unexpected path: %v", body["path"])
		}
	})

	t.Run("wrong scheme rejected", func(t *testing.T) {
		mw, token := newAuthFixture(t)
		handler := mw(authed)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/balance/alice", nil)
		req.Header.Set("Authorization", "Basic "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		mw, _ := newAuthFixture(t)
		handler := mw(authed)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/balance/alice", nil)
		req.Header.Set("Authorization", "Bearer nonsense")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		mw, token := newAuthFixture(t)
		handler := mw(authed)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/balance/alice", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if rec.Body.String() != "alice" {
			t.Fatalf("unexpected identity: %s", rec.Body.String())
		}
	})
}

func TestPublicPaths(t *testing.T) {
	public := DefaultPublicPaths()

	for _, path := range []string{"/", "/favicon.ico", "/metrics", "/api/v1/health", "/api/v1/auth/token", "/static/app.css", "/docs"} {
		if !public.IsPublic(path) {
			t.Fatalf("expected %s to be public", path)
		}
	}
	for _, path := range []string{"/api/v1/balance/alice", "/api/v1/admin/transactions", "/api/v1/healthz"} {
		if public.IsPublic(path) {
			t.Fatalf("expected %s to require auth", path)
		}
	}
}
