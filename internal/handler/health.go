package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fdygg/growledger/internal/store"
)

type HealthHandler struct {
	store     store.Store
	version   string
	startTime time.Time
}

func NewHealthHandler(s store.Store, version string) *HealthHandler {
	return &HealthHandler{
		store:     s,
		version:   version,
		startTime: time.Now(),
	}
}

type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	TotalPrincipals int    `json:"total_principals"`
	TotalAccounts   int    `json:"total_accounts"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principals, err := h.store.CountPrincipals(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count principals")
		principals = 0
	}

	accounts, err := h.store.CountAccounts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to count accounts")
		accounts = 0
	}

	RespondJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		TotalPrincipals: principals,
		TotalAccounts:   accounts,
		UptimeSeconds:   int64(time.Since(h.startTime).Seconds()),
	})
}
