package jobAuth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials is returned when the email/password pair does not match an account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotActivated is returned for password login before the activation link was used.
	ErrAccountNotActivated = errors.New("account not activated")
	// ErrAccountDisabled is returned for accounts an operator switched off.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountNotFound is returned when an authenticated subject no longer resolves to an account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrRateLimited is matched by every [RateLimitError].
	ErrRateLimited = errors.New("rate limited")
	// ErrTokenInvalid is returned for tokens with a bad signature, shape, type or unknown value.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned for tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned for tokens present in the revocation registry.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrEmailAlreadyInUse is returned when the email belongs to another account.
	ErrEmailAlreadyInUse = errors.New("email already in use")
	// ErrEmailMismatch is returned when an identity token email differs from the expected email.
	ErrEmailMismatch = errors.New("email mismatch")
	// ErrInvalidEmail is returned for syntactically invalid email addresses.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrNotSsoUser is returned by SSO-only operations called on a local account.
	ErrNotSsoUser = errors.New("account is not an sso account")
	// ErrForbiddenForSsoUser is returned by password operations called on an SSO-only account.
	ErrForbiddenForSsoUser = errors.New("operation not allowed for sso account")
	// ErrProviderConflict is returned when SSO login hits an existing local account.
	ErrProviderConflict = errors.New("email registered with another sign-in method")
	// ErrPasswordMismatch is returned when password and confirmation differ.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordPolicy is returned for passwords outside the configured length bounds.
	ErrPasswordPolicy = errors.New("password does not meet policy")
	// ErrOTPInvalid is returned for wrong, expired or missing one-time codes.
	ErrOTPInvalid = errors.New("otp invalid")
	// ErrIdentityRejected is returned when the external identity provider rejects a token.
	ErrIdentityRejected = errors.New("identity token rejected")
	// ErrVersionConflict is returned by AccountStore.Update when the row changed concurrently.
	ErrVersionConflict = errors.New("account changed concurrently")
	// ErrDependencyUnavailable wraps failures of the cache, store, mailer or identity provider.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrEngineNotReady is returned when an Engine was not built through [Builder.Build].
	ErrEngineNotReady = errors.New("engine not ready")
)

// RateLimitError carries the time until the limited action is allowed again.
// errors.Is(err, ErrRateLimited) matches it.
type RateLimitError struct {
	RetryAfter time.Duration
	Scope      string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (%s): retry after %s", e.Scope, e.RetryAfter.Round(time.Second))
}

// Is reports ErrRateLimited as the sentinel for RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RetryAfter extracts the retry interval from a rate limit error.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	return 0, false
}
