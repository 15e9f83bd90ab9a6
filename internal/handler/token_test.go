package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fdygg/growledger/internal/service"
	"github.com/fdygg/growledger/internal/store"
)

func newTokenHandlerFixture(t *testing.T) (*TokenHandler, *service.CreateCredentialResult) {
	t.Helper()

	mem := store.NewMemory()
	credentials := service.NewCredentialService(mem, 100, 60)
	tokens := service.NewTokenService(mem, credentials, time.Minute, 24*time.Hour, time.Hour)

	cred, err := credentials.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create credential: %v", err)
	}
	return NewTokenHandler(tokens), cred
}

func TestTokenHandler(t *testing.T) {
	t.Run("issues token for valid credentials", func(t *testing.T) {
		h, cred := newTokenHandlerFixture(t)

		body := `{"username":"alice","api_key":"` + cred.APIKey + `","requested_ttl_seconds":300}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			AccessToken      string `json:"access_token"`
			TokenType        string `json:"token_type"`
			ExpiresInSeconds int64  `json:"expires_in_seconds"`
			Username         string `json:"username"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.AccessToken == "" || resp.TokenType != "bearer" || resp.Username != "alice" {
			t.Fatalf("unexpected response: %+v", resp)
		}
		if resp.ExpiresInSeconds != 300 {
			t.Fatalf("expected 300s TTL, got %d", resp.ExpiresInSeconds)
		}
	})

	t.Run("rejects wrong api_key with 401", func(t *testing.T) {
		h, _ := newTokenHandlerFixture(t)

		body := `{"username":"alice","api_key":"alice_00000000"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown username with 404", func(t *testing.T) {
		h, cred := newTokenHandlerFixture(t)

		body := `{"username":"nobody","api_key":"` + cred.APIKey + `"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("rejects missing fields with 400", func(t *testing.T) {
		h, _ := newTokenHandlerFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed body with 400", func(t *testing.T) {
		h, _ := newTokenHandlerFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", strings.NewReader(`{not json`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
