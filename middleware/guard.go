package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	jobAuth "github.com/MrEthical07/jobAuth"
)

type principalContextKey struct{}

// PrincipalFromContext returns the principal stored by [Guard].
func PrincipalFromContext(ctx context.Context) (*jobAuth.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(*jobAuth.Principal)
	return p, ok
}

// WithPrincipal stores p in ctx. Handlers normally rely on [Guard] instead.
func WithPrincipal(ctx context.Context, p *jobAuth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// Guard verifies the access token of every request and stores the principal
// in the request context. Revoked, expired and malformed tokens get 401; a
// revocation registry outage under fail-closed configuration gets 503.
func Guard(engine *jobAuth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, ok := AccessToken(r, engine.Config().Session.AccessCookieName)
			if !ok {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			principal, err := engine.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, jobAuth.ErrDependencyUnavailable) {
					deny(w, http.StatusServiceUnavailable, "dependency_unavailable")
					return
				}
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// AccessToken returns the bearer token from the Authorization header, falling
// back to the named cookie.
func AccessToken(r *http.Request, cookieName string) (string, bool) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, true
	}
	if cookieName == "" {
		return "", false
	}
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func deny(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code})
}
