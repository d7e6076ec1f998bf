package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/jobAuth/internal"
	"github.com/MrEthical07/jobAuth/internal/rate"
)

// RunLogin authenticates email and password.
//
// Order matters: the attempt is counted before the account is looked up, so
// unknown and unactivated identifiers spend slots like wrong passwords do.
// Activation is checked before the password hash is touched.
func RunLogin(ctx context.Context, identifier, pw string, deps *Deps) (*Session, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	email := internal.NormalizeEmail(identifier)
	if email == "" || pw == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return nil, deps.Errors.InvalidCredentials
	}

	decision, err := deps.Guard.RecordAttempt(ctx, email)
	if err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			limited := deps.rateLimited("login", decision.RetryAfter)
			deps.EmitAudit(ctx, EventLoginRateLimited, false, "", limited, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, limited
		}
		return nil, deps.dependency(err)
	}
	if decision.Degraded {
		deps.Logger.WarnContext(ctx, "login attempt counter unavailable, failing open")
	}

	account, err := deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return nil, deps.dependency(err)
		}
		if deps.Settings.DummyHash != "" {
			_, _ = deps.Passwords.Verify(pw, deps.Settings.DummyHash)
		}
		return nil, loginFailure(ctx, deps, "", deps.Errors.InvalidCredentials)
	}

	if account.AuthProvider == ProviderExternal {
		return nil, loginFailure(ctx, deps, account.ID, deps.Errors.ForbiddenForSsoUser)
	}
	if !account.Activated {
		deps.MetricInc(deps.Metrics.LoginNotActivated)
		return nil, loginFailure(ctx, deps, account.ID, deps.Errors.AccountNotActivated)
	}

	ok, err := deps.Passwords.Verify(pw, account.PasswordHash)
	if err != nil || !ok {
		return nil, loginFailure(ctx, deps, account.ID, deps.Errors.InvalidCredentials)
	}
	if !account.Enabled {
		return nil, loginFailure(ctx, deps, account.ID, deps.Errors.AccountDisabled)
	}

	if err := deps.Guard.Reset(ctx, email); err != nil {
		deps.Logger.WarnContext(ctx, "login attempt counter reset failed", "account_id", account.ID, "error", err)
	}

	if deps.Settings.UpgradeOnLogin {
		upgradePasswordHash(ctx, deps, account, pw)
	}

	session, err := deps.issueSession(account, true)
	if err != nil {
		return nil, loginFailure(ctx, deps, account.ID, err)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, EventLoginSuccess, true, account.ID, nil, nil)
	return session, nil
}

func loginFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.LoginFailure)
	deps.EmitAudit(ctx, EventLoginFailure, false, accountID, err, nil)
	return err
}

// upgradePasswordHash re-hashes with current parameters. Best effort: the
// login has already succeeded.
func upgradePasswordHash(ctx context.Context, deps *Deps, account *Account, pw string) {
	needs, err := deps.Passwords.NeedsUpgrade(account.PasswordHash)
	if err != nil || !needs {
		return
	}
	hash, err := deps.Passwords.Hash(pw)
	if err != nil {
		return
	}
	updated := account.Clone()
	updated.PasswordHash = hash
	if err := deps.saveAccount(ctx, updated); err != nil {
		deps.Logger.WarnContext(ctx, "password rehash failed", "account_id", account.ID, "error", err)
		return
	}
	deps.MetricInc(deps.Metrics.PasswordRehashed)
}
