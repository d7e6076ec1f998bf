package jobAuth

import (
	"context"

	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
)

// Login authenticates email and password and issues a token pair.
//
// Every call counts against the per-email attempt window before the account is
// looked up. An unactivated account fails with ErrAccountNotActivated before
// the password is checked; SSO-only accounts fail with
// ErrForbiddenForSsoUser. Exceeding the window returns a *RateLimitError.
// A successful login clears the window.
func (e *Engine) Login(ctx context.Context, email, password string) (*Session, error) {
	return internalflows.RunLogin(ctx, email, password, e.flowDeps())
}

// Verify validates an access token including the revocation registry.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*Principal, error) {
	return internalflows.RunVerify(ctx, accessToken, e.flowDeps())
}

// Refresh exchanges a refresh token for a new access token carrying the
// account's current roles. The same refresh token is returned unless
// Session.RotateRefreshTokens is set.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	return internalflows.RunRefresh(ctx, refreshToken, e.flowDeps())
}

// CheckSession verifies the access token and returns a freshly issued one.
func (e *Engine) CheckSession(ctx context.Context, accessToken string) (*Session, error) {
	return internalflows.RunCheckSession(ctx, accessToken, e.flowDeps())
}

// Logout revokes both tokens for their remaining lifetime. Either may be
// empty. Revocation is best effort and Logout only fails when the engine is
// not built.
func (e *Engine) Logout(ctx context.Context, accessToken, refreshToken string) error {
	return internalflows.RunLogout(ctx, accessToken, refreshToken, e.flowDeps())
}
