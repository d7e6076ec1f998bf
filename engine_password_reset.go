package jobAuth

import (
	"context"

	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
)

// ForgotPassword mails a reset link when the email belongs to an account.
// The result is identical for unknown emails.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	return internalflows.RunForgotPassword(ctx, email, e.flowDeps())
}

// ResetPassword sets a new password using a reset token. The token is single
// use.
func (e *Engine) ResetPassword(ctx context.Context, token, newPassword string) error {
	return internalflows.RunResetPassword(ctx, token, newPassword, e.flowDeps())
}
