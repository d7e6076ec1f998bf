package jobAuth

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
	internalaudit "github.com/MrEthical07/jobAuth/internal/audit"
	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
	"github.com/MrEthical07/jobAuth/internal/limiters"
	"github.com/MrEthical07/jobAuth/internal/rate"
	"github.com/MrEthical07/jobAuth/internal/stores"
	"github.com/MrEthical07/jobAuth/jwt"
	"github.com/MrEthical07/jobAuth/password"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	cache  cache.Store

	accounts AccountStore
	mailer   Mailer
	identity IdentityVerifier

	auditSink AuditSink
	logger    *slog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithCache sets the credential cache. Required.
func (b *Builder) WithCache(store cache.Store) *Builder {
	b.cache = store
	return b
}

// WithAccountStore sets the account persistence collaborator. Required.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithMailer sets the mail collaborator. Required.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithIdentityVerifier enables the SSO operations.
func (b *Builder) WithIdentityVerifier(v IdentityVerifier) *Builder {
	b.identity = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to discard.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the wall clock, for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every collaborator.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.cache == nil {
		return nil, errors.New("cache store required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// -------- CRYPTO --------
	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MinPasswordBytes: cfg.Password.MinBytes,
		MaxPasswordBytes: cfg.Password.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	dummy, err := ph.Placeholder()
	if err != nil {
		return nil, err
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:  cfg,
		cache:   b.cache,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger,
		clock:   clock,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Logger:     logger,
	}, b.auditSink)

	// -------- FLOW DEPENDENCIES --------
	deps := &internalflows.Deps{
		Settings: internalflows.Settings{
			ActivationTTL:        cfg.Activation.TokenTTL,
			ResetTTL:             cfg.PasswordReset.TokenTTL,
			ProofTTL:             cfg.SSO.ProofTTL,
			OTPTTL:               cfg.OTP.TTL,
			OTPDigits:            cfg.OTP.Digits,
			DefaultRoles:         append([]string(nil), cfg.SSO.DefaultRoles...),
			RotateRefreshTokens:  cfg.Session.RotateRefreshTokens,
			RevocationFailClosed: cfg.Revocation.FailClosed,
			UpgradeOnLogin:       cfg.Password.UpgradeOnLogin,
			RequireEmailOTP:      cfg.EmailChange.RequireOTP,
			DummyHash:            dummy,
		},
		Accounts:  b.accounts,
		Mailer:    b.mailer,
		Identity:  b.identity,
		Tokens:    jm,
		Passwords: ph,
		Guard: rate.New(b.cache, rate.Config{
			MaxLoginAttempts: cfg.Login.MaxAttempts,
			LoginWindow:      cfg.Login.Window,
			FailOpen:         cfg.Login.FailOpen,
		}),
		Revocations:    stores.NewRevocationStore(b.cache, cfg.Revocation.Prefix),
		Proofs:         stores.NewProofStore(b.cache, cfg.SSO.ProofPrefix),
		OTPs:           stores.NewOTPStore(b.cache, cfg.OTP.Prefix),
		Consumed:       stores.NewConsumedTokens(b.cache, "aac"),
		ResendCooldown: limiters.NewCooldown(b.cache, cfg.Activation.CooldownPrefix+":", cfg.Activation.ResendCooldown),
		OTPCooldown:    limiters.NewCooldown(b.cache, "aoc:", cfg.OTP.SendCooldown),
		OTPAttempts:    limiters.NewWindow(b.cache, "aov:", cfg.OTP.TTL, cfg.OTP.MaxAttempts),
		Now:            clock,
		Logger:         logger,
		MetricInc: func(id int) {
			engine.metricInc(MetricID(id))
		},
		Observe: func(id int, d time.Duration) {
			engine.metrics.Observe(MetricID(id), d)
		},
		EmitAudit: engine.emitAudit,
		Metrics:   flowMetrics(),
		Errors:    flowErrors(),
	}
	if cfg.Activation.ResendCooldown == 0 {
		deps.ResendCooldown = nil
	}
	if cfg.OTP.SendCooldown == 0 {
		deps.OTPCooldown = nil
	}
	deps.Normalize()
	engine.deps = deps

	b.built = true

	return engine, nil
}

func flowErrors() internalflows.Errors {
	return internalflows.Errors{
		EngineNotReady:        ErrEngineNotReady,
		InvalidCredentials:    ErrInvalidCredentials,
		AccountNotActivated:   ErrAccountNotActivated,
		AccountDisabled:       ErrAccountDisabled,
		AccountNotFound:       ErrAccountNotFound,
		TokenInvalid:          ErrTokenInvalid,
		TokenExpired:          ErrTokenExpired,
		TokenRevoked:          ErrTokenRevoked,
		EmailAlreadyInUse:     ErrEmailAlreadyInUse,
		EmailMismatch:         ErrEmailMismatch,
		InvalidEmail:          ErrInvalidEmail,
		NotSsoUser:            ErrNotSsoUser,
		ForbiddenForSsoUser:   ErrForbiddenForSsoUser,
		ProviderConflict:      ErrProviderConflict,
		PasswordMismatch:      ErrPasswordMismatch,
		PasswordPolicy:        ErrPasswordPolicy,
		OTPInvalid:            ErrOTPInvalid,
		IdentityRejected:      ErrIdentityRejected,
		VersionConflict:       ErrVersionConflict,
		DependencyUnavailable: ErrDependencyUnavailable,
		RateLimited: func(scope string, retryAfter time.Duration) error {
			return &RateLimitError{Scope: scope, RetryAfter: retryAfter}
		},
	}
}

func flowMetrics() internalflows.Metrics {
	return internalflows.Metrics{
		LoginSuccess:            int(MetricLoginSuccess),
		LoginFailure:            int(MetricLoginFailure),
		LoginRateLimited:        int(MetricLoginRateLimited),
		LoginNotActivated:       int(MetricLoginNotActivated),
		PasswordRehashed:        int(MetricPasswordRehashed),
		RefreshSuccess:          int(MetricRefreshSuccess),
		RefreshFailure:          int(MetricRefreshFailure),
		VerifyFailure:           int(MetricVerifyFailure),
		VerifyLatency:           int(MetricVerifyLatency),
		RevocationReadFailed:    int(MetricRevocationReadFailed),
		RevocationWriteFailed:   int(MetricRevocationWriteFailed),
		Logout:                  int(MetricLogout),
		RegisterSuccess:         int(MetricRegisterSuccess),
		RegisterDuplicate:       int(MetricRegisterDuplicate),
		RegisterFailure:         int(MetricRegisterFailure),
		ActivationSuccess:       int(MetricActivationSuccess),
		ActivationFailure:       int(MetricActivationFailure),
		ActivationResent:        int(MetricActivationResent),
		ActivationResendLimited: int(MetricActivationResendThrottled),
		PasswordResetRequest:    int(MetricPasswordResetRequest),
		PasswordResetSuccess:    int(MetricPasswordResetSuccess),
		PasswordResetFailure:    int(MetricPasswordResetFailure),
		PasswordChangeSuccess:   int(MetricPasswordChangeSuccess),
		PasswordChangeInvalid:   int(MetricPasswordChangeInvalidOld),
		SSOLoginSuccess:         int(MetricSSOLoginSuccess),
		SSOLoginFailure:         int(MetricSSOLoginFailure),
		SSOAccountCreated:       int(MetricSSOAccountCreated),
		SSOProviderConflict:     int(MetricSSOProviderConflict),
		SSOPasswordSet:          int(MetricSSOPasswordSet),
		EmailChangeSuccess:      int(MetricEmailChangeSuccess),
		EmailChangeFailure:      int(MetricEmailChangeFailure),
		OTPSent:                 int(MetricOTPSent),
		OTPFailure:              int(MetricOTPFailure),
		RateLimitHit:            int(MetricRateLimitHit),
		ServiceTokenVerified:    int(MetricServiceTokenVerified),
		MailerFailure:           int(MetricMailerFailure),
	}
}
