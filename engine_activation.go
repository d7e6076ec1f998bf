package jobAuth

import (
	"context"

	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
)

// Register creates a disabled, unactivated account and mails the activation
// link. If the mail cannot be sent nothing is persisted.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	return internalflows.RunRegister(ctx, in, e.flowDeps())
}

// Activate redeems an activation token. Replaying a token that already
// activated its account succeeds with AlreadyActivated set.
func (e *Engine) Activate(ctx context.Context, token string) (*ActivationResult, error) {
	return internalflows.RunActivate(ctx, token, e.flowDeps())
}

// ResendActivation mails a fresh activation link, invalidating the previous
// one. Unknown emails succeed silently; activated accounts report
// alreadyActivated without a mail.
func (e *Engine) ResendActivation(ctx context.Context, email string) (alreadyActivated bool, err error) {
	return internalflows.RunResendActivation(ctx, email, e.flowDeps())
}
