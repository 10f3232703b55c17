package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/classpulse-systems/classpulse/internal/models"
	"github.com/classpulse-systems/classpulse/pkg/tokens"
)

const (
	ClaimsKey = contextKey("claims")
)

// AuthMiddleware guards routes with bearer access tokens. Validation is
// stateless: signature and expiry only, no session lookup.
type AuthMiddleware struct {
	tokenGen *tokens.TokenGenerator
}

func NewAuthMiddleware(tokenGen *tokens.TokenGenerator) *AuthMiddleware {
	return &AuthMiddleware{tokenGen: tokenGen}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := m.resolve(r)
		if !ok {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// RequireRole wraps RequireAuth and additionally demands one role from
// the closed role set.
func (m *AuthMiddleware) RequireRole(role models.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil || !hasRole(claims.Roles, role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) resolve(r *http.Request) (*tokens.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, false
	}

	claims, err := m.tokenGen.ValidateAccessToken(parts[1])
	if err != nil {
		return nil, false
	}
	return claims, true
}

// GetClaims extracts validated access-token claims from the context.
// Returns nil outside an authenticated request.
func GetClaims(ctx context.Context) *tokens.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*tokens.Claims); ok {
		return claims
	}
	return nil
}

func hasRole(roles []string, want models.Role) bool {
	for _, r := range roles {
		if r == string(want) {
			return true
		}
	}
	return false
}
