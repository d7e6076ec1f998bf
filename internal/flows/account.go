package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/jobAuth/internal"
	"github.com/MrEthical07/jobAuth/internal/stores"
)

// localAccount loads accountID and rejects SSO-only accounts.
func (d *Deps) localAccount(ctx context.Context, accountID string) (*Account, error) {
	account, err := d.loadAccount(d.Accounts.GetByID(ctx, accountID))
	if err != nil {
		return nil, err
	}
	if account.AuthProvider != ProviderLocal {
		return nil, d.Errors.ForbiddenForSsoUser
	}
	return account, nil
}

func (d *Deps) checkCurrentPassword(account *Account, current string) error {
	ok, err := d.Passwords.Verify(current, account.PasswordHash)
	if err != nil || !ok {
		return d.Errors.InvalidCredentials
	}
	return nil
}

// RunChangePassword replaces the password of a local account after checking
// the current one.
func RunChangePassword(ctx context.Context, accountID, current, next string, deps *Deps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}

	account, err := deps.localAccount(ctx, accountID)
	if err != nil {
		return passwordChangeFailure(ctx, deps, accountID, err)
	}
	if err := deps.checkCurrentPassword(account, current); err != nil {
		deps.MetricInc(deps.Metrics.PasswordChangeInvalid)
		return passwordChangeFailure(ctx, deps, account.ID, err)
	}
	if err := deps.checkPasswordPolicy(next); err != nil {
		return passwordChangeFailure(ctx, deps, account.ID, err)
	}

	hash, err := deps.Passwords.Hash(next)
	if err != nil {
		return passwordChangeFailure(ctx, deps, account.ID, err)
	}
	updated := account.Clone()
	updated.PasswordHash = hash
	// A pending reset link must not undo the change.
	updated.ResetTokenHash = ""
	updated.ResetTokenExpiry = time.Time{}
	if err := deps.saveAccount(ctx, updated); err != nil {
		return passwordChangeFailure(ctx, deps, account.ID, err)
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, EventPasswordChange, true, account.ID, nil, nil)
	return nil
}

func passwordChangeFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.EmitAudit(ctx, EventPasswordChange, false, accountID, err, nil)
	return err
}

// RunChangeEmail moves a local account to newEmail. The current password is
// required and, when configured, a proof from a verified one-time code sent to
// newEmail.
func RunChangeEmail(ctx context.Context, accountID, currentPassword, newEmail, otpProof string, deps *Deps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	newEmail = internal.NormalizeEmail(newEmail)
	if !validEmail(newEmail) {
		return emailChangeFailure(ctx, deps, accountID, deps.Errors.InvalidEmail)
	}

	account, err := deps.localAccount(ctx, accountID)
	if err != nil {
		return emailChangeFailure(ctx, deps, accountID, err)
	}
	if err := deps.checkCurrentPassword(account, currentPassword); err != nil {
		return emailChangeFailure(ctx, deps, account.ID, err)
	}
	if err := deps.emailAvailable(ctx, newEmail); err != nil {
		return emailChangeFailure(ctx, deps, account.ID, err)
	}

	if deps.Settings.RequireEmailOTP {
		if deps.Proofs == nil {
			return deps.Errors.EngineNotReady
		}
		if !internal.ValidTokenShape(otpProof) {
			return emailChangeFailure(ctx, deps, account.ID, deps.Errors.TokenInvalid)
		}
		record, err := deps.Proofs.Redeem(ctx, stores.ProofOTPEmail, account.ID, internal.HashToken(otpProof))
		if err != nil {
			return emailChangeFailure(ctx, deps, account.ID, proofMapErr(deps, err))
		}
		if record.Email != newEmail {
			return emailChangeFailure(ctx, deps, account.ID, deps.Errors.EmailMismatch)
		}
	}

	return commitEmailChange(ctx, deps, account, newEmail)
}
