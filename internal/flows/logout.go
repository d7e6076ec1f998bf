package flows

import (
	"context"

	"github.com/MrEthical07/jobAuth/jwt"
)

// RunLogout revokes whichever of the two tokens still verify. It never fails:
// tokens that are malformed or already expired need no blacklist entry and
// cache errors are logged.
func RunLogout(ctx context.Context, accessToken, refreshToken string, deps *Deps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	subject := ""
	for _, candidate := range []struct {
		token string
		typ   jwt.TokenType
	}{{accessToken, jwt.TypeAccess}, {refreshToken, jwt.TypeRefresh}} {
		if candidate.token == "" {
			continue
		}
		claims, err := deps.Tokens.Parse(candidate.token, candidate.typ)
		if err != nil {
			continue
		}
		subject = claims.Subject
		deps.revoke(ctx, candidate.token, claims)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, EventLogout, true, subject, nil, nil)
	return nil
}
