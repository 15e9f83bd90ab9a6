package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fdygg/growledger/internal/store"
)

const (
	tokenType    = "access_token"
	tokenVersion = "1.0.0"
)

// Claims is the token claim set. The api_key claim is rechecked against the
// stored credential on every verification, so rotating a credential
// invalidates outstanding tokens before they expire.
type Claims struct {
	APIKey    string `json:"api_key"`
	TokenType string `json:"type"`
	Version   string `json:"ver"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies bearer tokens. Every token is signed with
// its own principal's api_secret rather than a global server key; this is
// intentional and must not be "fixed".
type TokenService struct {
	store       store.CredentialStore
	credentials *CredentialService
	minTTL      time.Duration
	maxTTL      time.Duration
	defaultTTL  time.Duration
	now         func() time.Time
}

func NewTokenService(s store.CredentialStore, credentials *CredentialService, minTTL, maxTTL, defaultTTL time.Duration) *TokenService {
	return &TokenService{
		store:       s,
		credentials: credentials,
		minTTL:      minTTL,
		maxTTL:      maxTTL,
		defaultTTL:  defaultTTL,
		now:         time.Now,
	}
}

// IssueResult contains a signed token and its effective TTL. The TTL is
// reported back because out-of-range requests are clamped, not rejected.
type IssueResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	Username    string
}

// Issue signs a new token for username after checking its api_key.
func (s *TokenService) Issue(ctx context.Context, username, apiKey string, requestedTTL time.Duration) (*IssueResult, error) {
	principal, err := s.store.GetPrincipal(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("No credential exists for this username")
		}
		log.Error().Err(err).Str("username", username).Msg("failed to load principal")
		return nil, NewInternal("Failed to issue token")
	}

	if subtle.ConstantTimeCompare([]byte(principal.APIKey), []byte(apiKey)) != 1 {
		return nil, NewAuthentication("Invalid credentials")
	}

	ttl := s.clampTTL(requestedTTL)
	now := s.now().UTC()
	claims := &Claims{
		APIKey:    principal.APIKey,
		TokenType: tokenType,
		Version:   tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(principal.APISecret))
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to sign token")
		return nil, NewInternal("Failed to issue token")
	}

	if err := s.store.TouchLastUsed(ctx, username, now); err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to record credential use")
		return nil, NewInternal("Failed to issue token")
	}

	return &IssueResult{AccessToken: signed, ExpiresIn: ttl, Username: username}, nil
}

// clampTTL raises or lowers ttl into the configured bounds. Zero means "use
// the default"; anything else, including negative values, is clamped.
func (s *TokenService) clampTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl < s.minTTL {
		return s.minTTL
	}
	if ttl > s.maxTTL {
		return s.maxTTL
	}
	return ttl
}

// Verify validates a token and returns its claims. The unverified sub claim
// is read first so the signature is checked against exactly one principal's
// secret; no other principal's secret is ever tried.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	unverified := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, unverified); err != nil {
		return nil, NewInvalidToken("Invalid token")
	}
	username := unverified.Subject
	if username == "" {
		return nil, NewInvalidToken("Token has no subject")
	}

	principal, err := s.store.GetPrincipal(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewInvalidToken("Invalid token")
		}
		log.Error().Err(err).Str("username", username).Msg("failed to load principal")
		return nil, NewInternal("Failed to verify token")
	}

	claims := &Claims{}
	if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(principal.APISecret), nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, NewTokenExpired("Token has expired")
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, NewInvalidToken("Token is not valid yet")
		default:
			return nil, NewInvalidToken("Invalid token")
		}
	}

	if claims.TokenType != tokenType {
		return nil, NewInvalidToken("Unexpected token type")
	}

	// The embedded api_key must still match the stored credential.
	ok, err := s.credentials.Verify(ctx, username, claims.APIKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewInvalidToken("Credential is no longer valid")
	}

	return claims, nil
}
