package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fdygg/growledger/internal/service"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity is the authenticated principal attached to the request context.
type Identity struct {
	Username string
	APIKey   string
	Claims   *service.Claims
}

// GetIdentity extracts the authenticated identity from the request context.
func GetIdentity(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityContextKey).(*Identity)
	return ident
}

// PublicPaths is the fixed set of paths reachable without a bearer token.
type PublicPaths struct {
	exact    map[string]struct{}
	prefixes []string
}

// DefaultPublicPaths covers the health check, token issuance, metrics,
// static assets and documentation.
func DefaultPublicPaths() *PublicPaths {
	return &PublicPaths{
		exact: map[string]struct{}{
			"/":                  {},
			"/favicon.ico":       {},
			"/metrics":           {},
			"/api/v1/health":     {},
			"/api/v1/auth/token": {},
		},
		prefixes: []string{"/static/", "/docs"},
	}
}

// IsPublic reports whether path requires no authentication. Pure function:
// exact match or prefix match against the public set.
func (p *PublicPaths) IsPublic(path string) bool {
	if _, ok := p.exact[path]; ok {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Auth returns middleware that authenticates non-public requests via Bearer
// token. Token failures map to structured 401 responses; storage failures
// surface as 500, never as a false-negative auth failure.
func Auth(tokens *service.TokenService, public *PublicPaths, limiter *AuthAttemptLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if public.IsPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			attemptKey := clientIPKey(r, "bearer")
			if limiter != nil && !limiter.allow(attemptKey) {
				respondError(w, r, http.StatusTooManyRequests, "AuthenticationError", "Too many authentication failures")
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, r, http.StatusUnauthorized, "AuthenticationError", "No authentication token provided")
				return
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				if limiter != nil {
					limiter.registerFailure(attemptKey)
				}
				respondError(w, r, http.StatusUnauthorized, "AuthenticationError", "Authorization scheme must be Bearer")
				return
			}

			claims, err := tokens.Verify(r.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				if limiter != nil && service.IsAuthFailure(err) {
					limiter.registerFailure(attemptKey)
				}
				service.RespondError(w, r, err)
				return
			}

			if limiter != nil {
				limiter.registerSuccess(attemptKey)
			}
			ctx := context.WithValue(r.Context(), identityContextKey, &Identity{
				Username: claims.Subject,
				APIKey:   claims.APIKey,
				Claims:   claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
