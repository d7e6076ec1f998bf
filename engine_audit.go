package jobAuth

import (
	"context"
	"errors"
)

// AuditErrorCode is the stable, non-sensitive error label written to audit
// events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrNotActivated       AuditErrorCode = "account_not_activated"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrAccountNotFound    AuditErrorCode = "account_not_found"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrExpiredToken       AuditErrorCode = "expired_token"
	auditErrRevokedToken       AuditErrorCode = "revoked_token"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrEmailMismatch      AuditErrorCode = "email_mismatch"
	auditErrInvalidEmail       AuditErrorCode = "invalid_email"
	auditErrProviderConflict   AuditErrorCode = "provider_conflict"
	auditErrProviderForbidden  AuditErrorCode = "provider_forbidden"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrIdentityRejected   AuditErrorCode = "identity_rejected"
	auditErrConcurrentUpdate   AuditErrorCode = "concurrent_update"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["user_agent"] = ua
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		RequestID: RequestIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountNotActivated):
		return auditErrNotActivated
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrAccountNotFound):
		return auditErrAccountNotFound
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevokedToken
	case errors.Is(err, ErrEmailAlreadyInUse):
		return auditErrDuplicate
	case errors.Is(err, ErrEmailMismatch):
		return auditErrEmailMismatch
	case errors.Is(err, ErrInvalidEmail):
		return auditErrInvalidEmail
	case errors.Is(err, ErrProviderConflict):
		return auditErrProviderConflict
	case errors.Is(err, ErrForbiddenForSsoUser),
		errors.Is(err, ErrNotSsoUser):
		return auditErrProviderForbidden
	case errors.Is(err, ErrPasswordPolicy),
		errors.Is(err, ErrPasswordMismatch):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrOTPInvalid):
		return auditErrOTPInvalid
	case errors.Is(err, ErrIdentityRejected):
		return auditErrIdentityRejected
	case errors.Is(err, ErrVersionConflict):
		return auditErrConcurrentUpdate
	case errors.Is(err, ErrDependencyUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
