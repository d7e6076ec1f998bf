package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/jobAuth/internal"
	"github.com/MrEthical07/jobAuth/internal/stores"
)

func (d *Deps) verifyIdentity(ctx context.Context, idToken string) (*Identity, error) {
	if d.Identity == nil {
		return nil, d.Errors.EngineNotReady
	}
	if idToken == "" {
		return nil, d.Errors.IdentityRejected
	}
	identity, err := d.Identity.Verify(ctx, idToken)
	if err != nil {
		if errors.Is(err, d.Errors.IdentityRejected) {
			return nil, err
		}
		return nil, d.dependency(err)
	}
	if !identity.EmailVerified {
		return nil, d.Errors.IdentityRejected
	}
	identity.Email = internal.NormalizeEmail(identity.Email)
	if !validEmail(identity.Email) {
		return nil, d.Errors.IdentityRejected
	}
	return identity, nil
}

// RunSSOLogin signs in with an external identity token. Unknown emails get a
// new external account that is active immediately; local accounts with the
// same email are never linked silently.
func RunSSOLogin(ctx context.Context, idToken string, deps *Deps) (*Session, error) {
	if !deps.ready() {
		return nil, deps.Errors.EngineNotReady
	}

	identity, err := deps.verifyIdentity(ctx, idToken)
	if err != nil {
		return nil, ssoFailure(ctx, deps, "", err)
	}

	created := false
	account, err := deps.Accounts.GetByEmail(ctx, identity.Email)
	switch {
	case err == nil:
	case errors.Is(err, deps.Errors.AccountNotFound):
		account, err = createExternalAccount(ctx, deps, identity)
		if errors.Is(err, deps.Errors.EmailAlreadyInUse) {
			// Lost a creation race; use whatever won.
			account, err = deps.loadAccount(deps.Accounts.GetByEmail(ctx, identity.Email))
		} else if err == nil {
			created = true
		}
		if err != nil {
			return nil, ssoFailure(ctx, deps, "", err)
		}
	default:
		return nil, ssoFailure(ctx, deps, "", deps.dependency(err))
	}

	if account.AuthProvider != ProviderExternal {
		deps.MetricInc(deps.Metrics.SSOProviderConflict)
		return nil, ssoFailure(ctx, deps, account.ID, deps.Errors.ProviderConflict)
	}
	if !account.Enabled {
		return nil, ssoFailure(ctx, deps, account.ID, deps.Errors.AccountDisabled)
	}

	session, err := deps.issueSession(account, true)
	if err != nil {
		return nil, ssoFailure(ctx, deps, account.ID, err)
	}
	session.Created = created

	if created {
		deps.MetricInc(deps.Metrics.SSOAccountCreated)
	}
	deps.MetricInc(deps.Metrics.SSOLoginSuccess)
	deps.EmitAudit(ctx, EventSSOLogin, true, account.ID, nil, func() map[string]string {
		if created {
			return map[string]string{"created": "true"}
		}
		return nil
	})
	return session, nil
}

func createExternalAccount(ctx context.Context, deps *Deps, identity *Identity) (*Account, error) {
	placeholder, err := deps.Passwords.Placeholder()
	if err != nil {
		return nil, err
	}
	now := deps.Now().UTC()
	account := &Account{
		ID:           deps.NewAccountID(),
		Email:        identity.Email,
		PasswordHash: placeholder,
		AuthProvider: ProviderExternal,
		Enabled:      true,
		Activated:    true,
		Roles:        append([]string(nil), deps.Settings.DefaultRoles...),
		FirstName:    sanitizeProfile(identity.GivenName, maxProfileFieldBytes),
		LastName:     sanitizeProfile(identity.FamilyName, maxProfileFieldBytes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := deps.Accounts.Create(ctx, account, nil); err != nil {
		if errors.Is(err, deps.Errors.EmailAlreadyInUse) {
			return nil, err
		}
		return nil, deps.dependency(err)
	}
	return account, nil
}

func ssoFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.SSOLoginFailure)
	deps.EmitAudit(ctx, EventSSOLogin, false, accountID, err, nil)
	return err
}

// RunSetPasswordForSSOUser gives an external account a password and turns it
// into a local account. The conversion is one way.
func RunSetPasswordForSSOUser(ctx context.Context, accountID, newPassword, confirmPassword string, deps *Deps) error {
	if !deps.ready() {
		return deps.Errors.EngineNotReady
	}
	if newPassword != confirmPassword {
		return deps.Errors.PasswordMismatch
	}

	account, err := deps.loadAccount(deps.Accounts.GetByID(ctx, accountID))
	if err != nil {
		return err
	}
	if account.AuthProvider != ProviderExternal {
		return deps.Errors.NotSsoUser
	}
	if err := deps.checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	hash, err := deps.Passwords.Hash(newPassword)
	if err != nil {
		return err
	}
	updated := account.Clone()
	updated.PasswordHash = hash
	updated.AuthProvider = ProviderLocal
	if err := deps.saveAccount(ctx, updated); err != nil {
		return err
	}

	deps.MetricInc(deps.Metrics.SSOPasswordSet)
	deps.EmitAudit(ctx, EventSSOPasswordSet, true, account.ID, nil, nil)
	return nil
}

func (d *Deps) externalAccount(ctx context.Context, accountID string) (*Account, error) {
	account, err := d.loadAccount(d.Accounts.GetByID(ctx, accountID))
	if err != nil {
		return nil, err
	}
	if account.AuthProvider != ProviderExternal {
		return nil, d.Errors.NotSsoUser
	}
	return account, nil
}

func (d *Deps) issueProof(ctx context.Context, kind stores.ProofKind, accountID, email string) (string, error) {
	if d.Proofs == nil {
		return "", d.Errors.EngineNotReady
	}
	token, hash, err := internal.NewProofToken()
	if err != nil {
		return "", err
	}
	record := &stores.ChallengeRecord{AccountID: accountID, Email: email, SecretHash: hash}
	if err := d.Proofs.Save(ctx, kind, record, d.Settings.ProofTTL); err != nil {
		return "", d.dependency(err)
	}
	return token, nil
}

// RunVerifySSOOwnership proves the caller still controls the current email
// through the identity provider and returns the old-email proof.
func RunVerifySSOOwnership(ctx context.Context, accountID, idToken string, deps *Deps) (string, error) {
	if !deps.ready() {
		return "", deps.Errors.EngineNotReady
	}
	account, err := deps.externalAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	identity, err := deps.verifyIdentity(ctx, idToken)
	if err != nil {
		return "", err
	}
	if identity.Email != account.Email {
		return "", deps.Errors.EmailMismatch
	}

	proof, err := deps.issueProof(ctx, stores.ProofOldEmail, account.ID, account.Email)
	if err != nil {
		return "", err
	}
	deps.EmitAudit(ctx, EventSSOOwnershipVerified, true, account.ID, nil, func() map[string]string {
		return map[string]string{"proof": string(stores.ProofOldEmail)}
	})
	return proof, nil
}

// RunVerifyNewEmailOwnership proves the caller controls newEmail and that it
// is free, returning the new-email proof.
func RunVerifyNewEmailOwnership(ctx context.Context, accountID, newEmail, idToken string, deps *Deps) (string, error) {
	if !deps.ready() {
		return "", deps.Errors.EngineNotReady
	}
	newEmail = internal.NormalizeEmail(newEmail)
	if !validEmail(newEmail) {
		return "", deps.Errors.InvalidEmail
	}
	account, err := deps.externalAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	identity, err := deps.verifyIdentity(ctx, idToken)
	if err != nil {
		return "", err
	}
	if identity.Email != newEmail {
		return "", deps.Errors.EmailMismatch
	}
	if err := deps.emailAvailable(ctx, newEmail); err != nil {
		return "", err
	}

	proof, err := deps.issueProof(ctx, stores.ProofNewEmail, account.ID, newEmail)
	if err != nil {
		return "", err
	}
	deps.EmitAudit(ctx, EventSSOOwnershipVerified, true, account.ID, nil, func() map[string]string {
		return map[string]string{"proof": string(stores.ProofNewEmail)}
	})
	return proof, nil
}

// RunChangeEmailSSO redeems both ownership proofs at once and switches the
// account email. Missing, expired or mismatched proofs leave the account
// untouched.
func RunChangeEmailSSO(ctx context.Context, accountID, oldProof, newProof string, deps *Deps) error {
	if !deps.ready() || deps.Proofs == nil {
		return deps.Errors.EngineNotReady
	}
	if !internal.ValidTokenShape(oldProof) || !internal.ValidTokenShape(newProof) {
		return emailChangeFailure(ctx, deps, accountID, deps.Errors.TokenInvalid)
	}
	account, err := deps.externalAccount(ctx, accountID)
	if err != nil {
		return emailChangeFailure(ctx, deps, accountID, err)
	}

	oldRecord, newRecord, err := deps.Proofs.RedeemPair(ctx, account.ID, internal.HashToken(oldProof), internal.HashToken(newProof))
	if err != nil {
		return emailChangeFailure(ctx, deps, account.ID, proofMapErr(deps, err))
	}
	if oldRecord.Email != account.Email {
		return emailChangeFailure(ctx, deps, account.ID, deps.Errors.TokenInvalid)
	}

	return commitEmailChange(ctx, deps, account, newRecord.Email)
}

// emailAvailable reports whether email is unclaimed. The account's own
// current address counts as taken.
func (d *Deps) emailAvailable(ctx context.Context, email string) error {
	_, err := d.Accounts.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return d.Errors.EmailAlreadyInUse
	case errors.Is(err, d.Errors.AccountNotFound):
		return nil
	default:
		return d.dependency(err)
	}
}

// commitEmailChange writes the new email. Uniqueness is enforced again by the
// store at save time.
func commitEmailChange(ctx context.Context, deps *Deps, account *Account, newEmail string) error {
	updated := account.Clone()
	updated.Email = newEmail
	if err := deps.saveAccount(ctx, updated); err != nil {
		return emailChangeFailure(ctx, deps, account.ID, err)
	}
	if err := deps.Guard.Reset(ctx, account.Email); err != nil {
		deps.Logger.WarnContext(ctx, "login attempt counter reset failed", "account_id", account.ID, "error", err)
	}

	deps.MetricInc(deps.Metrics.EmailChangeSuccess)
	deps.EmitAudit(ctx, EventEmailChange, true, account.ID, nil, nil)
	return nil
}

func emailChangeFailure(ctx context.Context, deps *Deps, accountID string, err error) error {
	deps.MetricInc(deps.Metrics.EmailChangeFailure)
	deps.EmitAudit(ctx, EventEmailChange, false, accountID, err, nil)
	return err
}
