package middleware

import (
	"net/http"
	"slices"
)

// RequireRole admits principals holding at least one of roles. Requests
// without a principal get 401, principals without a matching role get 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok || principal == nil {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			for _, role := range roles {
				if slices.Contains(principal.Roles, role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, http.StatusForbidden, "forbidden")
		})
	}
}
