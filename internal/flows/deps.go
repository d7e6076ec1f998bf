package flows

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/jobAuth/internal/limiters"
	"github.com/MrEthical07/jobAuth/internal/rate"
	"github.com/MrEthical07/jobAuth/internal/stores"
	"github.com/MrEthical07/jobAuth/jwt"
	"github.com/MrEthical07/jobAuth/password"
	"github.com/google/uuid"
)

// Settings is the slice of engine configuration the flows read.
type Settings struct {
	ActivationTTL        time.Duration
	ResetTTL             time.Duration
	ProofTTL             time.Duration
	OTPTTL               time.Duration
	OTPDigits            int
	DefaultRoles         []string
	RotateRefreshTokens  bool
	RevocationFailClosed bool
	UpgradeOnLogin       bool
	RequireEmailOTP      bool
	// DummyHash is verified against when the account does not exist so
	// unknown emails cost the same as wrong passwords.
	DummyHash string
}

// Metrics carries root metric IDs as ints.
type Metrics struct {
	LoginSuccess            int
	LoginFailure            int
	LoginRateLimited        int
	LoginNotActivated       int
	PasswordRehashed        int
	RefreshSuccess          int
	RefreshFailure          int
	VerifyFailure           int
	VerifyLatency           int
	RevocationReadFailed    int
	RevocationWriteFailed   int
	Logout                  int
	RegisterSuccess         int
	RegisterDuplicate       int
	RegisterFailure         int
	ActivationSuccess       int
	ActivationFailure       int
	ActivationResent        int
	ActivationResendLimited int
	PasswordResetRequest    int
	PasswordResetSuccess    int
	PasswordResetFailure    int
	PasswordChangeSuccess   int
	PasswordChangeInvalid   int
	SSOLoginSuccess         int
	SSOLoginFailure         int
	SSOAccountCreated       int
	SSOProviderConflict     int
	SSOPasswordSet          int
	EmailChangeSuccess      int
	EmailChangeFailure      int
	OTPSent                 int
	OTPFailure              int
	RateLimitHit            int
	ServiceTokenVerified    int
	MailerFailure           int
}

// Errors carries the root sentinels so flows can return them without
// importing the root package.
type Errors struct {
	EngineNotReady        error
	InvalidCredentials    error
	AccountNotActivated   error
	AccountDisabled       error
	AccountNotFound       error
	TokenInvalid          error
	TokenExpired          error
	TokenRevoked          error
	EmailAlreadyInUse     error
	EmailMismatch         error
	InvalidEmail          error
	NotSsoUser            error
	ForbiddenForSsoUser   error
	ProviderConflict      error
	PasswordMismatch      error
	PasswordPolicy        error
	OTPInvalid            error
	IdentityRejected      error
	VersionConflict       error
	DependencyUnavailable error

	// RateLimited builds the typed rate limit error.
	RateLimited func(scope string, retryAfter time.Duration) error
}

// Deps is built once by the root Engine and shared by every flow.
type Deps struct {
	Settings Settings

	Accounts AccountStore
	Mailer   Mailer
	Identity IdentityVerifier

	Tokens    *jwt.Manager
	Passwords *password.Argon2
	Guard     *rate.Limiter

	Revocations    *stores.RevocationStore
	Proofs         *stores.ProofStore
	OTPs           *stores.OTPStore
	Consumed       *stores.ConsumedTokens
	ResendCooldown *limiters.Cooldown
	OTPCooldown    *limiters.Cooldown
	OTPAttempts    *limiters.Window

	Now          func() time.Time
	Logger       *slog.Logger
	NewAccountID func() string

	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, success bool, accountID string, err error, metadata func() map[string]string)

	Metrics Metrics
	Errors  Errors
}

// Normalize fills optional hooks with no-op defaults.
func (d *Deps) Normalize() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.NewAccountID == nil {
		d.NewAccountID = newAccountID
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.Observe == nil {
		d.Observe = func(int, time.Duration) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if d.Errors.RateLimited == nil {
		limited := d.Errors.EngineNotReady
		d.Errors.RateLimited = func(string, time.Duration) error { return limited }
	}
}

func (d *Deps) ready() bool {
	return d != nil &&
		d.Accounts != nil &&
		d.Tokens != nil &&
		d.Passwords != nil &&
		d.Guard != nil &&
		d.Revocations != nil
}

func (d *Deps) dependency(err error) error {
	return wrapDependency(d.Errors.DependencyUnavailable, err)
}

func newAccountID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
