package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/bryanwahyu/rightsdesk/internal/domain/users"
)

type contextKey string

const principalKey contextKey = "principal"

// TokenVerifier turns a bearer token into the caller identity.
type TokenVerifier interface {
	Verify(token string) (*users.Principal, error)
}

// JWTAuth validates the bearer token from the Authorization header
func JWTAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				WriteError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			token, ok := strings.CutPrefix(auth, "Bearer ")
			token = strings.TrimSpace(token)
			if !ok || token == "" {
				WriteError(w, http.StatusUnauthorized, "Invalid authorization header format")
				return
			}

			p, err := v.Verify(token)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WithPrincipal stores the authenticated identity in ctx.
func WithPrincipal(ctx context.Context, p *users.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the caller set by JWTAuth
func PrincipalFromContext(ctx context.Context) (*users.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*users.Principal)
	return p, ok && p != nil
}
