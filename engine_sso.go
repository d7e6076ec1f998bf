package jobAuth

import (
	"context"

	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
)

// SSOLogin signs in with an external ID token, creating an external account on
// first use. A local account with the same email yields ErrProviderConflict.
func (e *Engine) SSOLogin(ctx context.Context, idToken string) (*Session, error) {
	return internalflows.RunSSOLogin(ctx, idToken, e.flowDeps())
}

// SetPasswordForSSOUser converts an external account to a local one.
func (e *Engine) SetPasswordForSSOUser(ctx context.Context, accountID, newPassword, confirmPassword string) error {
	return internalflows.RunSetPasswordForSSOUser(ctx, accountID, newPassword, confirmPassword, e.flowDeps())
}

// VerifySSOOwnership returns the old-email proof for an SSO email change.
func (e *Engine) VerifySSOOwnership(ctx context.Context, accountID, idToken string) (string, error) {
	return internalflows.RunVerifySSOOwnership(ctx, accountID, idToken, e.flowDeps())
}

// VerifyNewEmailOwnership returns the new-email proof for an SSO email change.
func (e *Engine) VerifyNewEmailOwnership(ctx context.Context, accountID, newEmail, idToken string) (string, error) {
	return internalflows.RunVerifyNewEmailOwnership(ctx, accountID, newEmail, idToken, e.flowDeps())
}

// ChangeEmailSSO redeems both proofs together and switches the email.
func (e *Engine) ChangeEmailSSO(ctx context.Context, accountID, oldProof, newProof string) error {
	return internalflows.RunChangeEmailSSO(ctx, accountID, oldProof, newProof, e.flowDeps())
}
