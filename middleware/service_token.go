package middleware

import (
	"context"
	"net/http"

	jobAuth "github.com/MrEthical07/jobAuth"
)

type serviceTokenContextKey struct{}

// ServiceTokenFromContext returns the result stored by [RequireServiceToken].
func ServiceTokenFromContext(ctx context.Context) (*jobAuth.ServiceTokenResult, bool) {
	res, ok := ctx.Value(serviceTokenContextKey{}).(*jobAuth.ServiceTokenResult)
	return res, ok
}

// RequireServiceToken checks only signature and expiry of the bearer token,
// skipping the revocation registry.
//
// Responses carry X-Revocation-Checked: false so callers know a logged-out
// token can still pass until it expires.
func RequireServiceToken(engine *jobAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Revocation-Checked", "false")
			if engine == nil {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			res, err := engine.VerifyServiceToken(r.Context(), token)
			if err != nil || res == nil || !res.Valid {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), serviceTokenContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
