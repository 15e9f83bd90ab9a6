package admin

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fdygg/growledger/internal/handler"
	"github.com/fdygg/growledger/internal/httputil"
	"github.com/fdygg/growledger/internal/model"
	"github.com/fdygg/growledger/internal/service"
)

// --- Create Credential ---

type CreateCredentialHandler struct {
	credentials *service.CredentialService
}

func NewCreateCredentialHandler(credentials *service.CredentialService) *CreateCredentialHandler {
	return &CreateCredentialHandler{credentials: credentials}
}

type createCredentialRequest struct {
	Username string `json:"username"`
}

type createCredentialResponse struct {
	Username  string `json:"username"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	CreatedAt string `json:"created_at"`
}

func (h *CreateCredentialHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req createCredentialRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		handler.RespondError(w, r, http.StatusBadRequest, "ValidationError", "Invalid request body")
		return
	}

	result, err := h.credentials.Create(r.Context(), req.Username)
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	// The full secret appears in this response and nowhere else.
	handler.RespondJSON(w, http.StatusCreated, createCredentialResponse{
		Username:  result.Principal.Username,
		APIKey:    result.APIKey,
		APISecret: result.APISecret,
		CreatedAt: result.Principal.CreatedAt.Format(time.RFC3339),
	})
}

// --- List Credentials ---

type ListCredentialsHandler struct {
	credentials *service.CredentialService
}

func NewListCredentialsHandler(credentials *service.CredentialService) *ListCredentialsHandler {
	return &ListCredentialsHandler{credentials: credentials}
}

type listCredentialsResponse struct {
	Credentials []credentialListItem `json:"credentials"`
	Total       int                  `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

type credentialListItem struct {
	Username        string `json:"username"`
	APIKey          string `json:"api_key"`
	SecretPrefix    string `json:"secret_prefix"`
	RateLimitMax    int    `json:"rate_limit_max"`
	RateLimitWindow int    `json:"rate_limit_window"`
	CreatedAt       string `json:"created_at"`
	LastUsed        string `json:"last_used,omitempty"`
}

func (h *ListCredentialsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset, err := httputil.ParsePagination(q.Get("limit"), q.Get("offset"))
	if err != nil {
		handler.RespondError(w, r, http.StatusBadRequest, "ValidationError", err.Error())
		return
	}

	principals, total, err := h.credentials.List(r.Context(), limit, offset)
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	items := make([]credentialListItem, 0, len(principals))
	for _, p := range principals {
		items = append(items, toCredentialListItem(p))
	}

	handler.RespondJSON(w, http.StatusOK, listCredentialsResponse{
		Credentials: items,
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

func toCredentialListItem(p *model.Principal) credentialListItem {
	item := credentialListItem{
		Username:        p.Username,
		APIKey:          p.APIKey,
		SecretPrefix:    p.SecretPrefix,
		RateLimitMax:    p.RateLimitMax,
		RateLimitWindow: p.RateLimitWindow,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	if p.LastUsed != nil {
		item.LastUsed = p.LastUsed.Format(time.RFC3339)
	}
	return item
}
