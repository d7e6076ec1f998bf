package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/jobAuth/jwt"
)

// RunVerify checks an access token: signature, typ, expiry, then revocation.
func RunVerify(ctx context.Context, token string, deps *Deps) (*Principal, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}
	start := deps.Now()
	defer func() {
		deps.Observe(deps.Metrics.VerifyLatency, deps.Now().Sub(start))
	}()

	claims, err := deps.parseToken(ctx, token, jwt.TypeAccess)
	if err != nil {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		return nil, err
	}
	return principalFromClaims(claims), nil
}

// RunRefresh mints a new access token from a refresh token. The account is
// re-read so role changes and disabled accounts take effect. The presented
// refresh token is returned unchanged unless rotation is enabled, in which
// case a new one is issued and the old one revoked.
func RunRefresh(ctx context.Context, refreshToken string, deps *Deps) (*Session, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	claims, err := deps.parseToken(ctx, refreshToken, jwt.TypeRefresh)
	if err != nil {
		return nil, refreshFailure(ctx, deps, "", err)
	}

	account, err := deps.loadAccount(deps.Accounts.GetByID(ctx, claims.Subject))
	if err != nil {
		return nil, refreshFailure(ctx, deps, claims.Subject, err)
	}
	if err := deps.accountUsable(account); err != nil {
		return nil, refreshFailure(ctx, deps, account.ID, err)
	}

	session, err := deps.issueSession(account, deps.Settings.RotateRefreshTokens)
	if err != nil {
		return nil, refreshFailure(ctx, deps, account.ID, err)
	}
	if deps.Settings.RotateRefreshTokens {
		deps.revoke(ctx, refreshToken, claims)
	} else {
		session.RefreshToken = refreshToken
		session.RefreshExpiresAt = expiryOf(claims)
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, EventRefreshSuccess, true, account.ID, nil, nil)
	return session, nil
}

// RunCheckSession verifies the access token and always returns a freshly
// issued one, sliding the session forward.
func RunCheckSession(ctx context.Context, accessToken string, deps *Deps) (*Session, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	claims, err := deps.parseToken(ctx, accessToken, jwt.TypeAccess)
	if err != nil {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		return nil, err
	}
	account, err := deps.loadAccount(deps.Accounts.GetByID(ctx, claims.Subject))
	if err != nil {
		return nil, err
	}
	if err := deps.accountUsable(account); err != nil {
		return nil, err
	}
	return deps.issueSession(account, false)
}

func refreshFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.RefreshFailure)
	deps.EmitAudit(ctx, EventRefreshInvalid, false, accountID, err, nil)
	return err
}

func principalFromClaims(claims *jwt.Claims) *Principal {
	return &Principal{
		Subject:   claims.Subject,
		Roles:     append([]string(nil), claims.Roles...),
		TokenID:   claims.ID,
		ExpiresAt: expiryOf(claims),
	}
}

func expiryOf(claims *jwt.Claims) time.Time {
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
