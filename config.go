package jobAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config holds every tunable of the Engine. Build one with [DefaultConfig] and
// override fields; [Builder.Build] validates it and treats it as immutable.
type Config struct {
	JWT           JWTConfig
	Session       SessionConfig
	Login         LoginConfig
	Revocation    RevocationConfig
	Password      PasswordConfig
	Activation    ActivationConfig
	PasswordReset PasswordResetConfig
	SSO           SSOConfig
	EmailChange   EmailChangeConfig
	OTP           OTPConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig is passed through to jwt.NewManager.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default) or "hs256"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls refresh behaviour and the cookie transport.
type SessionConfig struct {
	// RotateRefreshTokens issues a new refresh token on every refresh and
	// revokes the presented one.
	RotateRefreshTokens bool

	AccessCookieName  string
	RefreshCookieName string
	CookieDomain      string
	CookiePath        string
	// CookieSecure must only be disabled for plain-HTTP local development.
	CookieSecure   bool
	CookieSameSite http.SameSite
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig tunes the brute-force guard.
type LoginConfig struct {
	MaxAttempts int
	Window      time.Duration
	// FailOpen lets logins through when the cache cannot count them.
	FailOpen bool
}

// RevocationConfig tunes the revocation registry.
type RevocationConfig struct {
	Prefix string
	// FailClosed rejects tokens when the registry cannot be read.
	FailClosed bool
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and length policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinBytes       int
	MaxBytes       int
	UpgradeOnLogin bool
}

/*
====================================
TOKEN LIFECYCLE CONFIG
====================================
*/

// ActivationConfig controls activation tokens and the resend cooldown.
type ActivationConfig struct {
	TokenTTL       time.Duration
	ResendCooldown time.Duration
	CooldownPrefix string
}

// PasswordResetConfig controls reset tokens.
type PasswordResetConfig struct {
	TokenTTL time.Duration
}

// SSOConfig controls accounts created through an external identity provider.
type SSOConfig struct {
	DefaultRoles []string
	ProofTTL     time.Duration
	ProofPrefix  string
}

// EmailChangeConfig controls the non-SSO email change.
type EmailChangeConfig struct {
	// RequireOTP demands a verified one-time code for the new address.
	RequireOTP bool
}

// OTPConfig controls one-time codes sent to a prospective email address.
type OTPConfig struct {
	Digits       int
	TTL          time.Duration
	MaxAttempts  int
	SendCooldown time.Duration
	Prefix       string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultRoles is assigned to accounts created by registration or SSO.
var DefaultRoles = []string{"applicant"}

// DefaultConfig returns a Config with production defaults. JWT keys are left
// empty and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Issuer:        "jobauth",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			AccessCookieName:  "access_token",
			RefreshCookieName: "refresh_token",
			CookiePath:        "/",
			CookieSecure:      true,
			CookieSameSite:    http.SameSiteLaxMode,
		},
		Login: LoginConfig{
			MaxAttempts: 5,
			Window:      time.Minute,
		},
		Revocation: RevocationConfig{
			Prefix: "arv",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinBytes:       8,
			MaxBytes:       1024,
			UpgradeOnLogin: true,
		},
		Activation: ActivationConfig{
			TokenTTL:       24 * time.Hour,
			ResendCooldown: time.Minute,
			CooldownPrefix: "arc",
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: time.Hour,
		},
		SSO: SSOConfig{
			DefaultRoles: append([]string(nil), DefaultRoles...),
			ProofTTL:     10 * time.Minute,
			ProofPrefix:  "aep",
		},
		EmailChange: EmailChangeConfig{
			RequireOTP: true,
		},
		OTP: OTPConfig{
			Digits:       6,
			TTL:          10 * time.Minute,
			MaxAttempts:  5,
			SendCooldown: time.Minute,
			Prefix:       "aot",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.SSO.DefaultRoles = append([]string(nil), cfg.SSO.DefaultRoles...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Session
	if strings.TrimSpace(c.Session.AccessCookieName) == "" || strings.TrimSpace(c.Session.RefreshCookieName) == "" {
		return errors.New("Session cookie names must be set")
	}
	if c.Session.AccessCookieName == c.Session.RefreshCookieName {
		return errors.New("Session cookie names must differ")
	}
	if c.Session.CookieSameSite == http.SameSiteNoneMode && !c.Session.CookieSecure {
		return errors.New("SameSite=None requires CookieSecure")
	}

	// Login
	if c.Login.MaxAttempts <= 0 {
		return errors.New("Login MaxAttempts must be > 0")
	}
	if c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinBytes < 1 || c.Password.MaxBytes < c.Password.MinBytes {
		return errors.New("Password length bounds are invalid")
	}

	// Token lifecycles
	if c.Activation.TokenTTL <= 0 {
		return errors.New("Activation TokenTTL must be > 0")
	}
	if c.Activation.ResendCooldown < 0 {
		return errors.New("Activation ResendCooldown must be >= 0")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.SSO.ProofTTL <= 0 {
		return errors.New("SSO ProofTTL must be > 0")
	}
	if len(c.SSO.DefaultRoles) == 0 {
		return errors.New("SSO DefaultRoles must not be empty")
	}

	// OTP
	if c.OTP.Digits < 6 || c.OTP.Digits > 10 {
		return errors.New("OTP Digits must be within [6, 10]")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP MaxAttempts must be > 0")
	}
	if c.OTP.SendCooldown < 0 {
		return errors.New("OTP SendCooldown must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	for _, prefix := range []string{c.Revocation.Prefix, c.Activation.CooldownPrefix, c.SSO.ProofPrefix, c.OTP.Prefix} {
		if strings.TrimSpace(prefix) == "" || strings.ContainsAny(prefix, ": ") {
			return errors.New("cache key prefixes must be non-empty and contain no ':' or spaces")
		}
	}

	return nil
}
