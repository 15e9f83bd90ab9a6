package admin

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fdygg/growledger/internal/handler"
	"github.com/fdygg/growledger/internal/model"
	"github.com/fdygg/growledger/internal/service"
)

// --- Query Transactions ---

type QueryTransactionsHandler struct {
	ledger *service.LedgerService
}

func NewQueryTransactionsHandler(ledger *service.LedgerService) *QueryTransactionsHandler {
	return &QueryTransactionsHandler{ledger: ledger}
}

type queryTransactionsResponse struct {
	Transactions []*model.Transaction `json:"transactions"`
	Total        int                  `json:"total"`
	Limit        int                  `json:"limit"`
	Offset       int                  `json:"offset"`
}

func (h *QueryTransactionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	input, err := handler.ParseTransactionQuery(r)
	if err != nil {
		handler.RespondError(w, r, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	txns, total, err := h.ledger.QueryTransactions(r.Context(), input)
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, queryTransactionsResponse{
		Transactions: txns,
		Total:        total,
		Limit:        input.Limit,
		Offset:       input.Offset,
	})
}

// --- Reverse Transaction ---

type ReverseTransactionHandler struct {
	ledger *service.LedgerService
}

func NewReverseTransactionHandler(ledger *service.LedgerService) *ReverseTransactionHandler {
	return &ReverseTransactionHandler{ledger: ledger}
}

type reverseTransactionRequest struct {
	Reason string `json:"reason,omitempty"`
}

type reverseTransactionResponse struct {
	ReversalID  int64              `json:"reversal_id"`
	OriginalID  int64              `json:"original_id"`
	Transaction *model.Transaction `json:"transaction"`
}

func (h *ReverseTransactionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		handler.RespondError(w, r, http.StatusBadRequest, "ValidationError", "Invalid transaction ID")
		return
	}

	var req reverseTransactionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			handler.RespondError(w, r, http.StatusBadRequest, "ValidationError", "Invalid request body")
			return
		}
	}

	txn, err := h.ledger.Reverse(r.Context(), id, req.Reason)
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	handler.RespondJSON(w, http.StatusOK, reverseTransactionResponse{
		ReversalID:  txn.ID,
		OriginalID:  id,
		Transaction: txn,
	})
}
