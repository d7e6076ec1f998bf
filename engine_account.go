package jobAuth

import (
	"context"

	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
)

// ChangePassword replaces the password of a local account.
func (e *Engine) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	return internalflows.RunChangePassword(ctx, accountID, currentPassword, newPassword, e.flowDeps())
}

// ChangeEmail moves a local account to newEmail. otpProof comes from
// [Engine.VerifyOTP] and is ignored when EmailChange.RequireOTP is off.
func (e *Engine) ChangeEmail(ctx context.Context, accountID, currentPassword, newEmail, otpProof string) error {
	return internalflows.RunChangeEmail(ctx, accountID, currentPassword, newEmail, otpProof, e.flowDeps())
}

// SendOTP mails a one-time code to newEmail.
func (e *Engine) SendOTP(ctx context.Context, accountID, newEmail string) error {
	return internalflows.RunSendOTP(ctx, accountID, newEmail, e.flowDeps())
}

// VerifyOTP checks the code and returns the proof for ChangeEmail.
func (e *Engine) VerifyOTP(ctx context.Context, accountID, code string) (string, error) {
	return internalflows.RunVerifyOTP(ctx, accountID, code, e.flowDeps())
}
