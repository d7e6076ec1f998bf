package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/jobAuth/internal"
	"github.com/MrEthical07/jobAuth/internal/limiters"
	"github.com/MrEthical07/jobAuth/internal/stores"
)

func (d *Deps) otpReady() bool {
	return d.ready() && d.Mailer != nil && d.OTPs != nil && d.Proofs != nil && d.OTPAttempts != nil
}

// RunSendOTP mails a one-time code to the address a local account wants to
// move to. One send per cooldown period; a new code replaces the old one.
func RunSendOTP(ctx context.Context, accountID, newEmail string, deps *Deps) error {
	if !deps.otpReady() {
		return deps.Errors.EngineNotReady
	}
	newEmail = internal.NormalizeEmail(newEmail)
	if !validEmail(newEmail) {
		return deps.Errors.InvalidEmail
	}

	account, err := deps.localAccount(ctx, accountID)
	if err != nil {
		return err
	}
	if err := deps.emailAvailable(ctx, newEmail); err != nil {
		return err
	}

	if remaining, err := deps.OTPCooldown.Acquire(ctx, account.ID); err != nil {
		if errors.Is(err, limiters.ErrCooldownActive) {
			return deps.rateLimited("otp_send", remaining)
		}
		return deps.dependency(err)
	}

	code, err := internal.NewOTP(deps.Settings.OTPDigits)
	if err != nil {
		_ = deps.OTPCooldown.Release(ctx, account.ID)
		return err
	}
	record := &stores.ChallengeRecord{
		AccountID:  account.ID,
		Email:      newEmail,
		SecretHash: internal.HashToken(code),
	}
	if err := deps.OTPs.Save(ctx, record, deps.Settings.OTPTTL); err != nil {
		_ = deps.OTPCooldown.Release(ctx, account.ID)
		return deps.dependency(err)
	}
	if err := deps.OTPAttempts.Reset(ctx, account.ID); err != nil {
		deps.Logger.WarnContext(ctx, "otp attempt counter reset failed", "account_id", account.ID, "error", err)
	}

	if err := deps.Mailer.SendOTP(ctx, newEmail, code); err != nil {
		deps.MetricInc(deps.Metrics.MailerFailure)
		_ = deps.OTPs.Delete(ctx, account.ID)
		_ = deps.OTPCooldown.Release(ctx, account.ID)
		deps.EmitAudit(ctx, EventOTPSent, false, account.ID, err, nil)
		return deps.dependency(err)
	}

	deps.MetricInc(deps.Metrics.OTPSent)
	deps.EmitAudit(ctx, EventOTPSent, true, account.ID, nil, nil)
	return nil
}

// RunVerifyOTP checks code against the pending challenge and, on a match,
// returns a single-use proof bound to the challenged address. Attempts are
// budgeted per challenge; exhausting the budget discards the challenge.
func RunVerifyOTP(ctx context.Context, accountID, code string, deps *Deps) (string, error) {
	if !deps.otpReady() {
		return "", deps.Errors.EngineNotReady
	}
	if accountID == "" || code == "" || len(code) > 16 {
		return "", otpFailure(ctx, deps, accountID, deps.Errors.OTPInvalid)
	}

	if remaining, err := deps.OTPAttempts.Hit(ctx, accountID); err != nil {
		if errors.Is(err, limiters.ErrWindowExceeded) {
			if delErr := deps.OTPs.Delete(ctx, accountID); delErr != nil {
				deps.Logger.WarnContext(ctx, "otp challenge delete failed", "account_id", accountID, "error", delErr)
			}
			return "", otpFailure(ctx, deps, accountID, deps.rateLimited("otp_verify", remaining))
		}
		return "", deps.dependency(err)
	}

	record, err := deps.OTPs.Consume(ctx, accountID, internal.HashToken(code))
	if err != nil {
		if errors.Is(err, stores.ErrOTPNotFound) || errors.Is(err, stores.ErrOTPMismatch) {
			return "", otpFailure(ctx, deps, accountID, deps.Errors.OTPInvalid)
		}
		return "", deps.dependency(err)
	}
	if err := deps.OTPAttempts.Reset(ctx, accountID); err != nil {
		deps.Logger.WarnContext(ctx, "otp attempt counter reset failed", "account_id", accountID, "error", err)
	}

	proof, err := deps.issueProof(ctx, stores.ProofOTPEmail, accountID, record.Email)
	if err != nil {
		return "", err
	}
	deps.EmitAudit(ctx, EventOTPVerify, true, accountID, nil, nil)
	return proof, nil
}

func otpFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.OTPFailure)
	deps.EmitAudit(ctx, EventOTPVerify, false, accountID, err, nil)
	return err
}
