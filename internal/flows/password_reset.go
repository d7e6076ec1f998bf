package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jobAuth/internal"
)

// RunForgotPassword issues a reset token for an existing account and mails
// it. The caller always sees success; failures are logged and audited only.
func RunForgotPassword(ctx context.Context, email string, deps *Deps) error {
	if !deps.ready() || deps.Mailer == nil {
		return deps.Errors.EngineNotReady
	}
	deps.MetricInc(deps.Metrics.PasswordResetRequest)

	email = internal.NormalizeEmail(email)
	if !validEmail(email) {
		return nil
	}

	account, err := deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			deps.Logger.WarnContext(ctx, "password reset lookup failed", "error", err)
		}
		return nil
	}

	token, tokenHash, err := internal.NewOneTimeToken()
	if err != nil {
		deps.Logger.ErrorContext(ctx, "reset token generation failed", "error", err)
		return nil
	}
	updated := account.Clone()
	updated.ResetTokenHash = tokenHash
	updated.ResetTokenExpiry = deps.Now().UTC().Add(deps.Settings.ResetTTL)
	if err := deps.saveAccount(ctx, updated); err != nil {
		deps.Logger.WarnContext(ctx, "reset token save failed", "account_id", account.ID, "error", err)
		deps.EmitAudit(ctx, EventPasswordResetRequest, false, account.ID, err, nil)
		return nil
	}

	if err := deps.Mailer.SendPasswordReset(ctx, email, token); err != nil {
		deps.MetricInc(deps.Metrics.MailerFailure)
		deps.Logger.WarnContext(ctx, "reset mail failed", "account_id", account.ID, "error", err)
		deps.EmitAudit(ctx, EventPasswordResetRequest, false, account.ID, err, nil)
		return nil
	}

	deps.EmitAudit(ctx, EventPasswordResetRequest, true, account.ID, nil, nil)
	return nil
}

// RunResetPassword replaces the password of the account owning token and
// clears the token in the same save. The login attempt counter for the
// account is reset as well. An external account that resets its password
// becomes a local one, the same conversion RunSetPasswordForSSOUser makes.
func RunResetPassword(ctx context.Context, token, newPassword string, deps *Deps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	if !internal.ValidTokenShape(token) {
		return resetFailure(ctx, deps, "", deps.Errors.TokenInvalid)
	}

	account, err := deps.Accounts.GetByResetTokenHash(ctx, internal.HashToken(token))
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return resetFailure(ctx, deps, "", deps.Errors.TokenInvalid)
		}
		return deps.dependency(err)
	}
	if tokenExpired(account.ResetTokenExpiry, deps.Now()) {
		return resetFailure(ctx, deps, account.ID, deps.Errors.TokenExpired)
	}
	if err := deps.checkPasswordPolicy(newPassword); err != nil {
		return resetFailure(ctx, deps, account.ID, err)
	}

	hash, err := deps.Passwords.Hash(newPassword)
	if err != nil {
		return resetFailure(ctx, deps, account.ID, err)
	}
	converted := account.AuthProvider == ProviderExternal
	updated := account.Clone()
	updated.PasswordHash = hash
	updated.AuthProvider = ProviderLocal
	updated.ResetTokenHash = ""
	updated.ResetTokenExpiry = time.Time{}
	if err := deps.saveAccount(ctx, updated); err != nil {
		if errors.Is(err, deps.Errors.VersionConflict) {
			// Another request consumed the token first.
			return resetFailure(ctx, deps, account.ID, deps.Errors.TokenInvalid)
		}
		return resetFailure(ctx, deps, account.ID, err)
	}

	if err := deps.Guard.Reset(ctx, account.Email); err != nil {
		deps.Logger.WarnContext(ctx, "login attempt counter reset failed", "account_id", account.ID, "error", err)
	}

	if converted {
		deps.MetricInc(deps.Metrics.SSOPasswordSet)
		deps.EmitAudit(ctx, EventSSOPasswordSet, true, account.ID, nil, nil)
	}
	deps.MetricInc(deps.Metrics.PasswordResetSuccess)
	deps.EmitAudit(ctx, EventPasswordResetConfirm, true, account.ID, nil, nil)
	return nil
}

func resetFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.PasswordResetFailure)
	deps.EmitAudit(ctx, EventPasswordResetConfirm, false, accountID, err, nil)
	return err
}
