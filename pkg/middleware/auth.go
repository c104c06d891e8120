// Package middleware provides the HTTP middleware used by the storefront kernel.
package middleware

import (
	"net/http"
	"strings"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// TokenVerifier is satisfied by *auth.Issuer.
type TokenVerifier interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate requires a valid "Authorization: Bearer <jwt>" header and
// stores the claims on the request context (see auth.ClaimsFromCtx).
func Authenticate(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				response.Error(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := v.ValidateToken(token)
			if err != nil {
				logger.WithCtx(r.Context()).Debug("rejected token", "error", err)
				response.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := auth.WithClaims(r.Context(), claims)
			ctx = logger.InjectLogger(ctx, logger.WithCtx(ctx).With("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
