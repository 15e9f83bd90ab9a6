package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fdygg/growledger/internal/httputil"
	"github.com/fdygg/growledger/internal/model"
	"github.com/fdygg/growledger/internal/service"
)

// --- Get Balance ---

type GetBalanceHandler struct {
	ledger *service.LedgerService
}

func NewGetBalanceHandler(ledger *service.LedgerService) *GetBalanceHandler {
	return &GetBalanceHandler{ledger: ledger}
}

type balanceResponse struct {
	GrowID        string `json:"growid"`
	Balance       int64  `json:"balance"`
	DonationTotal int64  `json:"donation_total"`
	PurchaseTotal int64  `json:"purchase_total"`
	LastUpdated   string `json:"last_updated,omitempty"`
	Status        string `json:"status"`
}

func (h *GetBalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	acct, err := h.ledger.GetBalance(r.Context(), chi.URLParam(r, "growid"))
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, toBalanceResponse(acct))
}

// --- Update Balance ---

type UpdateBalanceHandler struct {
	ledger *service.LedgerService
}

func NewUpdateBalanceHandler(ledger *service.LedgerService) *UpdateBalanceHandler {
	return &UpdateBalanceHandler{ledger: ledger}
}

type updateBalanceRequest struct {
	Amount          int64             `json:"amount"`
	TransactionType string            `json:"transaction_type"`
	Reason          string            `json:"reason,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

type updateBalanceResponse struct {
	Account     balanceResponse    `json:"account"`
	Transaction *model.Transaction `json:"transaction"`
}

func (h *UpdateBalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req updateBalanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "ValidationError", "Invalid request body")
		return
	}

	acct, txn, err := h.ledger.AdjustBalance(r.Context(), service.AdjustInput{
		GrowID:    chi.URLParam(r, "growid"),
		Amount:    req.Amount,
		Direction: service.Direction(req.TransactionType),
		Reason:    req.Reason,
		Metadata:  req.Metadata,
	})
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, updateBalanceResponse{
		Account:     toBalanceResponse(acct),
		Transaction: txn,
	})
}

// --- Balance History ---

type BalanceHistoryHandler struct {
	ledger *service.LedgerService
}

func NewBalanceHistoryHandler(ledger *service.LedgerService) *BalanceHistoryHandler {
	return &BalanceHistoryHandler{ledger: ledger}
}

type transactionPageResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

func (h *BalanceHistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	input, err := ParseTransactionQuery(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}
	input.GrowID = chi.URLParam(r, "growid")

	txns, total, err := h.ledger.QueryTransactions(r.Context(), input)
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, transactionPageResponse{
		Transactions: txns,
		Total:        total,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
}

// --- Helpers ---

func toBalanceResponse(acct *model.Account) balanceResponse {
	resp := balanceResponse{
		GrowID:        acct.GrowID,
		Balance:       acct.Balance,
		DonationTotal: acct.DonationTotal,
		PurchaseTotal: acct.PurchaseTotal,
		Status:        "active",
	}
	if !acct.UpdatedAt.IsZero() {
		resp.LastUpdated = acct.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// ParseTransactionQuery reads the shared transaction filter parameters. Range
// and enum validation happens in the service; only syntax is checked here.
func ParseTransactionQuery(r *http.Request) (service.QueryInput, error) {
	q := r.URL.Query()

	limit, offset, err := httputil.ParsePagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		return service.QueryInput{}, err
	}

	input := service.QueryInput{
		GrowID: q.Get("growid"),
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	}

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return input, errors.New("start_date must be an RFC 3339 timestamp")
		}
		input.From = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return input, errors.New("end_date must be an RFC 3339 timestamp")
		}
		input.To = &t
	}
	if v := q.Get("min_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return input, errors.New("min_amount must be an integer")
		}
		input.MinAmount = &n
	}
	if v := q.Get("max_amount"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return input, errors.New("max_amount must be an integer")
		}
		input.MaxAmount = &n
	}

	return input, nil
}
