// Package rbac guards routes by role.
package rbac

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/response"
)

// RoleLookup returns a user's current role from the store. ok is false when
// the user no longer exists.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID uint) (role string, ok bool, err error)
}

// HasRole allows users whose stored role is one of roles. The role in the
// token is ignored so a demotion takes effect before the token expires.
// Authenticate must run first.
func HasRole(lookup RoleLookup, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := auth.UserIDFromCtx(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}

			role, found, err := lookup.RoleOf(r.Context(), uid)
			if err != nil {
				logger.WithCtx(r.Context()).Error("role lookup failed", "error", err)
				response.InternalError(w)
				return
			}
			if !found || !allowed[role] {
				response.Error(w, http.StatusForbidden, "Admin access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
