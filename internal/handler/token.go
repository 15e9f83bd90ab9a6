package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fdygg/growledger/internal/service"
)

type TokenHandler struct {
	tokens *service.TokenService
}

func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type tokenRequest struct {
	Username            string `json:"username"`
	APIKey              string `json:"api_key"`
	RequestedTTLSeconds int64  `json:"requested_ttl_seconds,omitempty"`
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	Username         string `json:"username"`
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "ValidationError", "Invalid request body")
		return
	}
	if req.Username == "" || req.APIKey == "" {
		RespondError(w, r, http.StatusBadRequest, "ValidationError", "username and api_key are required")
		return
	}

	result, err := h.tokens.Issue(r.Context(), req.Username, req.APIKey, time.Duration(req.RequestedTTLSeconds)*time.Second)
	if err != nil {
		service.RespondError(w, r, err)
		return
	}

	RespondJSON(w, http.StatusOK, tokenResponse{
		AccessToken:      result.AccessToken,
		TokenType:        "bearer",
		ExpiresInSeconds: int64(result.ExpiresIn.Seconds()),
		Username:         result.Username,
	})
}
