package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/jobAuth/internal"
	"github.com/MrEthical07/jobAuth/internal/limiters"
	"github.com/MrEthical07/jobAuth/internal/stores"
)

const maxProfileFieldBytes = 100

// RunRegister creates a disabled, unactivated local account and mails its
// activation token. The mail is sent from the store's commit hook so a mailer
// failure rolls the insert back.
func RunRegister(ctx context.Context, in RegisterInput, deps *Deps) (*Account, error) {
	if !deps.ready() || deps.Mailer == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := internal.NormalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, registerFailure(ctx, deps, deps.Errors.InvalidEmail)
	}
	if err := deps.checkPasswordPolicy(in.Password); err != nil {
		return nil, registerFailure(ctx, deps, err)
	}

	if _, err := deps.Accounts.GetByEmail(ctx, email); err == nil {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		return nil, registerFailure(ctx, deps, deps.Errors.EmailAlreadyInUse)
	} else if !errors.Is(err, deps.Errors.AccountNotFound) {
		return nil, registerFailure(ctx, deps, deps.dependency(err))
	}

	hash, err := deps.Passwords.Hash(in.Password)
	if err != nil {
		return nil, registerFailure(ctx, deps, err)
	}
	token, tokenHash, err := internal.NewOneTimeToken()
	if err != nil {
		return nil, registerFailure(ctx, deps, err)
	}

	now := deps.Now().UTC()
	account := &Account{
		ID:                    deps.NewAccountID(),
		Email:                 email,
		PasswordHash:          hash,
		AuthProvider:          ProviderLocal,
		Roles:                 append([]string(nil), deps.Settings.DefaultRoles...),
		ActivationTokenHash:   tokenHash,
		ActivationTokenExpiry: now.Add(deps.Settings.ActivationTTL),
		FirstName:             sanitizeProfile(in.FirstName, maxProfileFieldBytes),
		LastName:              sanitizeProfile(in.LastName, maxProfileFieldBytes),
		Phone:                 sanitizeProfile(in.Phone, maxProfileFieldBytes),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	err = deps.Accounts.Create(ctx, account, func(ctx context.Context) error {
		if err := deps.Mailer.SendActivation(ctx, email, token); err != nil {
			deps.MetricInc(deps.Metrics.MailerFailure)
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, deps.Errors.EmailAlreadyInUse) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			return nil, registerFailure(ctx, deps, err)
		}
		return nil, registerFailure(ctx, deps, deps.dependency(err))
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, EventRegister, true, account.ID, nil, nil)
	return account, nil
}

func registerFailure(ctx context.Context, deps *Deps, err error) error {
	deps.MetricInc(deps.Metrics.RegisterFailure)
	deps.EmitAudit(ctx, EventRegisterFailure, false, "", err, nil)
	return err
}

// RunActivate redeems an activation token. A token that was already spent
// resolves through the consumed-token ledger and reports AlreadyActivated
// without touching the account.
func RunActivate(ctx context.Context, token string, deps *Deps) (*ActivationResult, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}
	if !internal.ValidTokenShape(token) {
		return nil, activationFailure(ctx, deps, "", deps.Errors.TokenInvalid)
	}
	tokenHash := internal.HashToken(token)

	account, err := deps.Accounts.GetByActivationTokenHash(ctx, tokenHash)
	if err != nil {
		if !errors.Is(err, deps.Errors.AccountNotFound) {
			return nil, deps.dependency(err)
		}
		return replayedActivation(ctx, deps, tokenHash)
	}

	if account.Activated {
		return &ActivationResult{AccountID: account.ID, AlreadyActivated: true}, nil
	}
	if tokenExpired(account.ActivationTokenExpiry, deps.Now()) {
		return nil, activationFailure(ctx, deps, account.ID, deps.Errors.TokenExpired)
	}

	updated := account.Clone()
	updated.Activated = true
	updated.Enabled = true
	updated.ActivationTokenHash = ""
	updated.ActivationTokenExpiry = time.Time{}
	if err := deps.saveAccount(ctx, updated); err != nil {
		if errors.Is(err, deps.Errors.VersionConflict) {
			// A concurrent activation of the same account won.
			return &ActivationResult{AccountID: account.ID, AlreadyActivated: true}, nil
		}
		return nil, activationFailure(ctx, deps, account.ID, err)
	}

	// Replays stay answerable for a full activation window after the
	// redemption, however close to expiry the link was used.
	if deps.Consumed != nil {
		if err := deps.Consumed.Mark(ctx, tokenHash, account.ID, deps.Settings.ActivationTTL); err != nil {
			deps.Logger.WarnContext(ctx, "activation ledger write failed", "account_id", account.ID, "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.ActivationSuccess)
	deps.EmitAudit(ctx, EventActivation, true, account.ID, nil, nil)
	return &ActivationResult{AccountID: account.ID}, nil
}

func replayedActivation(ctx context.Context, deps *Deps, tokenHash string) (*ActivationResult, error) {
	if deps.Consumed == nil {
		return nil, activationFailure(ctx, deps, "", deps.Errors.TokenInvalid)
	}
	accountID, err := deps.Consumed.Lookup(ctx, tokenHash)
	if err != nil {
		if !errors.Is(err, stores.ErrConsumedNotFound) {
			deps.Logger.WarnContext(ctx, "activation ledger read failed", "error", err)
		}
		return nil, activationFailure(ctx, deps, "", deps.Errors.TokenInvalid)
	}
	account, err := deps.loadAccount(deps.Accounts.GetByID(ctx, accountID))
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return nil, activationFailure(ctx, deps, "", deps.Errors.TokenInvalid)
		}
		return nil, err
	}
	if !account.Activated {
		return nil, activationFailure(ctx, deps, account.ID, deps.Errors.TokenInvalid)
	}
	return &ActivationResult{AccountID: account.ID, AlreadyActivated: true}, nil
}

func activationFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.ActivationFailure)
	deps.EmitAudit(ctx, EventActivation, false, accountID, err, nil)
	return err
}

// RunResendActivation re-issues the activation mail. The cooldown is claimed
// before the lookup so timing and responses do not depend on whether the
// email is registered. Unknown emails succeed silently.
func RunResendActivation(ctx context.Context, email string, deps *Deps) (alreadyActivated bool, err error) {
	if !deps.ready() || deps.Mailer == nil {
		return false, deps.Errors.EngineNotReady
	}
	email = internal.NormalizeEmail(email)
	if !validEmail(email) {
		return false, deps.Errors.InvalidEmail
	}

	if remaining, err := deps.ResendCooldown.Acquire(ctx, email); err != nil {
		if errors.Is(err, limiters.ErrCooldownActive) {
			deps.MetricInc(deps.Metrics.ActivationResendLimited)
			return false, deps.rateLimited("resend_activation", remaining)
		}
		return false, deps.dependency(err)
	}

	account, err := deps.Accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, deps.Errors.AccountNotFound) {
			return false, nil
		}
		return false, deps.dependency(err)
	}
	if account.Activated {
		return true, nil
	}
	if account.AuthProvider != ProviderLocal {
		return false, nil
	}

	token, tokenHash, err := internal.NewOneTimeToken()
	if err != nil {
		return false, err
	}
	updated := account.Clone()
	updated.ActivationTokenHash = tokenHash
	updated.ActivationTokenExpiry = deps.Now().UTC().Add(deps.Settings.ActivationTTL)
	if err := deps.saveAccount(ctx, updated); err != nil {
		_ = deps.ResendCooldown.Release(ctx, email)
		return false, err
	}

	if err := deps.Mailer.SendActivation(ctx, email, token); err != nil {
		deps.MetricInc(deps.Metrics.MailerFailure)
		_ = deps.ResendCooldown.Release(ctx, email)
		deps.EmitAudit(ctx, EventActivationResend, false, account.ID, err, nil)
		return false, deps.dependency(err)
	}

	deps.MetricInc(deps.Metrics.ActivationResent)
	deps.EmitAudit(ctx, EventActivationResend, true, account.ID, nil, nil)
	return false, nil
}
