package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fdygg/growledger/internal/model"
	"github.com/fdygg/growledger/internal/store"
	"github.com/fdygg/growledger/internal/validation"
)

// CredentialService handles principal credential business logic. One active
// credential per username; rotation is not supported.
type CredentialService struct {
	store           store.CredentialStore
	rateLimitMax    int
	rateLimitWindow int
	now             func() time.Time
}

// NewCredentialService creates a new credential service. rateLimitMax and
// rateLimitWindow are the request quota assigned to new principals.
func NewCredentialService(s store.CredentialStore, rateLimitMax, rateLimitWindow int) *CredentialService {
	return &CredentialService{
		store:           s,
		rateLimitMax:    rateLimitMax,
		rateLimitWindow: rateLimitWindow,
		now:             time.Now,
	}
}

// CreateCredentialResult contains the output of a successful credential
// creation. APISecret is returned here exactly once and never again.
type CreateCredentialResult struct {
	Principal *model.Principal
	APIKey    string
	APISecret string
}

// Create generates and persists a new credential for username.
func (s *CredentialService) Create(ctx context.Context, username string) (*CreateCredentialResult, error) {
	if err := validation.Username(username); err != nil {
		return nil, NewValidation(err.Error())
	}

	apiKey, err := generateAPIKey(username)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate api key")
		return nil, NewInternal("Failed to create credential")
	}
	apiSecret, err := generateAPISecret(username)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate api secret")
		return nil, NewInternal("Failed to create credential")
	}

	principal := &model.Principal{
		Username:        username,
		APIKey:          apiKey,
		APISecret:       apiSecret,
		SecretPrefix:    SecretPrefix(apiSecret),
		RateLimitMax:    s.rateLimitMax,
		RateLimitWindow: s.rateLimitWindow,
	}

	if err := s.store.CreatePrincipal(ctx, principal); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, NewConflict("A credential already exists for this username")
		}
		log.Error().Err(err).Str("username", username).Msg("failed to create credential")
		return nil, NewInternal("Failed to create credential")
	}

	log.Info().
		Str("username", username).
		Str("api_key", apiKey).
		Str("secret_prefix", principal.SecretPrefix).
		Msg("credential created")

	return &CreateCredentialResult{Principal: principal, APIKey: apiKey, APISecret: apiSecret}, nil
}

// Verify checks username's api_key in constant time. A match records the use
// on the principal's last_used; a mismatch reports false without revealing
// which field was wrong.
func (s *CredentialService) Verify(ctx context.Context, username, apiKey string) (bool, error) {
	principal, err := s.store.GetPrincipal(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		log.Error().Err(err).Str("username", username).Msg("failed to load principal")
		return false, NewInternal("Failed to verify credential")
	}

	if subtle.ConstantTimeCompare([]byte(principal.APIKey), []byte(apiKey)) != 1 {
		return false, nil
	}

	if err := s.store.TouchLastUsed(ctx, username, s.now().UTC()); err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to record credential use")
		return false, NewInternal("Failed to verify credential")
	}
	return true, nil
}

// Get returns the principal for username.
func (s *CredentialService) Get(ctx context.Context, username string) (*model.Principal, error) {
	principal, err := s.store.GetPrincipal(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("Principal not found")
		}
		log.Error().Err(err).Str("username", username).Msg("failed to load principal")
		return nil, NewInternal("Failed to load principal")
	}
	return principal, nil
}

// List returns a page of principals and the total count.
func (s *CredentialService) List(ctx context.Context, limit, offset int) ([]*model.Principal, int, error) {
	principals, total, err := s.store.ListPrincipals(ctx, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list principals")
		return nil, 0, NewInternal("Failed to list credentials")
	}
	return principals, total, nil
}

// SecretPrefix returns the short diagnostic form of a secret. Full secrets
// are never logged or serialized.
func SecretPrefix(secret string) string {
	if len(secret) <= 12 {
		return secret
	}
	return secret[:12] + "..."
}

// generateAPIKey builds the short, user-facing lookup key: username plus
// 8 hex characters.
func generateAPIKey(username string) (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return username + "_" + hex.EncodeToString(b), nil
}

// generateAPISecret builds the long signing secret. The sk_ prefix and
// length keep it visually distinct from an api_key.
func generateAPISecret(username string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return "sk_" + username + "_" + hex.EncodeToString(b), nil
}
