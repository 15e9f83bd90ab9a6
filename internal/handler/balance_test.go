package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fdygg/growledger/internal/service"
	"github.com/fdygg/growledger/internal/store"
)

func newBalanceRouter() chi.Router {
	ledger := service.NewLedgerService(store.NewMemory())

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/api/v1/balance/{growid}", NewGetBalanceHandler(ledger))
	r.Method(http.MethodPost, "/api/v1/balance/{growid}/update", NewUpdateBalanceHandler(ledger))
	r.Method(http.MethodGet, "/api/v1/balance/{growid}/history", NewBalanceHistoryHandler(ledger))
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestBalanceEndpoints(t *testing.T) {
	t.Run("fresh account reads zero", func(t *testing.T) {
		router := newBalanceRouter()

		rec, body := doJSON(t, router, http.MethodGet, "/api/v1/balance/newplayer", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["growid"] != "newplayer" || body["balance"] != float64(0) {
			t.Fatalf("unexpected snapshot: %v", body)
		}
	})

	t.Run("invalid growid rejected", func(t *testing.T) {
		router := newBalanceRouter()

		rec, body := doJSON(t, router, http.MethodGet, "/api/v1/balance/x", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if body["type"] != "ValidationError" {
			t.Fatalf("unexpected error type: %v", body["type"])
		}
	})

	t.Run("update then read round trip", func(t *testing.T) {
		router := newBalanceRouter()

		rec, body := doJSON(t, router, http.MethodPost, "/api/v1/balance/alice/update",
			`{"amount":100,"transaction_type":"add","reason":"event reward"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		account := body["account"].(map[string]interface{})
		if account["balance"] != float64(100) {
			t.Fatalf("expected balance 100, got %v", account["balance"])
		}
		txn := body["transaction"].(map[string]interface{})
		if txn["type"] != "add" || txn["new_balance"] != float64(100) {
			t.Fatalf("unexpected transaction: %v", txn)
		}

		rec, body = doJSON(t, router, http.MethodGet, "/api/v1/balance/alice", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["balance"] != float64(100) {
			t.Fatalf("expected balance 100, got %v", body["balance"])
		}
	})

	t.Run("overdraft returns 409 conflict", func(t *testing.T) {
		router := newBalanceRouter()

		rec, body := doJSON(t, router, http.MethodPost, "/api/v1/balance/alice/update",
			`{"amount":5,"transaction_type":"subtract"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		if body["type"] != "InsufficientFundsError" {
			t.Fatalf("unexpected error type: %v", body["type"])
		}
	})

	t.Run("history pages transactions", func(t *testing.T) {
		router := newBalanceRouter()

		for i := 0; i < 3; i++ {
			rec, _ := doJSON(t, router, http.MethodPost, "/api/v1/balance/alice/update",
				`{"amount":10,"transaction_type":"add"}`)
			if rec.Code != http.StatusOK {
				t.Fatalf("setup update failed: %d", rec.Code)
			}
		}

		rec, body := doJSON(t, router, http.MethodGet, "/api/v1/balance/alice/history?limit=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body["total"] != float64(3) {
			t.Fatalf("expected total 3, got %v", body["total"])
		}
		if txns := body["transactions"].([]interface{}); len(txns) != 2 {
			t.Fatalf("expected 2 transactions on the page, got %d", len(txns))
		}
	})

	t.Run("history rejects bad filter", func(t *testing.T) {
		router := newBalanceRouter()

		rec, _ := doJSON(t, router, http.MethodGet, "/api/v1/balance/alice/history?start_date=notadate", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
