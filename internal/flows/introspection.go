package flows

import (
	"context"

	"github.com/MrEthical07/jobAuth/jwt"
)

// RunVerifyServiceToken answers other backend systems asking whether a bearer
// access token is genuine. Only signature, typ and expiry are checked: the
// revocation registry is NOT consulted, so a logged-out token stays valid
// here until it expires.
func RunVerifyServiceToken(ctx context.Context, token string, deps *Deps) (*ServiceTokenResult, error) {
	if deps.Tokens == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if token == "" {
		return &ServiceTokenResult{}, deps.Errors.TokenInvalid
	}

	claims, err := deps.Tokens.Parse(token, jwt.TypeAccess)
	if err != nil {
		if jwt.IsExpired(err) {
			return &ServiceTokenResult{}, deps.Errors.TokenExpired
		}
		return &ServiceTokenResult{}, deps.Errors.TokenInvalid
	}

	deps.MetricInc(deps.Metrics.ServiceTokenVerified)
	deps.EmitAudit(ctx, EventServiceTokenVerified, true, claims.Subject, nil, nil)
	return &ServiceTokenResult{
		Valid:     true,
		Subject:   claims.Subject,
		Roles:     append([]string(nil), claims.Roles...),
		ExpiresAt: expiryOf(claims),
	}, nil
}

// Health pings the cache and the account store.
type Health struct {
	CacheErr error
	StoreErr error
}

// OK reports whether every dependency answered.
func (h Health) OK() bool {
	return h.CacheErr == nil && h.StoreErr == nil
}

// RunHealth probes dependencies with ping.
func RunHealth(ctx context.Context, pingCache func(context.Context) error, deps *Deps) Health {
	var h Health
	if pingCache != nil {
		h.CacheErr = pingCache(ctx)
	}
	if deps != nil && deps.Accounts != nil {
		h.StoreErr = deps.Accounts.Ping(ctx)
	}
	return h
}
