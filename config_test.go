package jobAuth

import (
	"net/http"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "test baseline valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "jwt leeway valid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 45 * time.Second
			},
			wantValid: true,
		},
		{
			name: "jwt leeway invalid",
			mutate: func(c *Config) {
				c.JWT.Leeway = 3 * time.Minute
			},
			wantValid: false,
		},
		{
			name: "jwt signing invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "hs256 short key invalid",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = []byte("weak-key")
			},
			wantValid: false,
		},
		{
			name: "ed25519 without keys invalid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "ed25519"
			},
			wantValid: false,
		},
		{
			name: "refresh shorter than access invalid",
			mutate: func(c *Config) {
				c.JWT.RefreshTTL = time.Hour
			},
			wantValid: false,
		},
		{
			name: "same cookie names invalid",
			mutate: func(c *Config) {
				c.Session.RefreshCookieName = c.Session.AccessCookieName
			},
			wantValid: false,
		},
		{
			name: "samesite none without secure invalid",
			mutate: func(c *Config) {
				c.Session.CookieSameSite = http.SameSiteNoneMode
				c.Session.CookieSecure = false
			},
			wantValid: false,
		},
		{
			name: "insecure cookies for local dev valid",
			mutate: func(c *Config) {
				c.Session.CookieSecure = false
			},
			wantValid: true,
		},
		{
			name: "zero login attempts invalid",
			mutate: func(c *Config) {
				c.Login.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "weak argon2 memory invalid",
			mutate: func(c *Config) {
				c.Password.Memory = 1024
			},
			wantValid: false,
		},
		{
			name: "password bounds inverted invalid",
			mutate: func(c *Config) {
				c.Password.MinBytes = 64
				c.Password.MaxBytes = 16
			},
			wantValid: false,
		},
		{
			name: "zero resend cooldown valid",
			mutate: func(c *Config) {
				c.Activation.ResendCooldown = 0
			},
			wantValid: true,
		},
		{
			name: "empty sso roles invalid",
			mutate: func(c *Config) {
				c.SSO.DefaultRoles = nil
			},
			wantValid: false,
		},
		{
			name: "otp digits invalid",
			mutate: func(c *Config) {
				c.OTP.Digits = 4
			},
			wantValid: false,
		},
		{
			name: "prefix with colon invalid",
			mutate: func(c *Config) {
				c.Revocation.Prefix = "arv:"
			},
			wantValid: false,
		},
		{
			name: "audit without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.JWT.AccessTTL != 5*time.Hour || cfg.JWT.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("unexpected token lifetimes: %s / %s", cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	}
	if cfg.Login.MaxAttempts != 5 || cfg.Login.Window != time.Minute || cfg.Login.FailOpen {
		t.Fatalf("unexpected login guard defaults: %+v", cfg.Login)
	}
	if cfg.Session.RotateRefreshTokens {
		t.Fatal("refresh rotation must be opt-in")
	}
	if cfg.Activation.TokenTTL != 24*time.Hour || cfg.PasswordReset.TokenTTL != time.Hour {
		t.Fatal("unexpected token lifecycle defaults")
	}
	if !cfg.Session.CookieSecure || cfg.Session.CookieSameSite != http.SameSiteLaxMode {
		t.Fatal("expected secure lax cookies by default")
	}
}

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected ed25519 defaults without keys to be rejected")
	}
}

func TestBuilderRequiresCollaborators(t *testing.T) {
	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected missing cache to fail")
	}

	b := New().WithConfig(testConfig())
	b.built = true
	if _, err := b.Build(); err == nil {
		t.Fatal("expected reuse to fail")
	}
}

func TestConfigCopyIsolated(t *testing.T) {
	env := newTestEnv(t, testConfig())

	cfg := env.engine.Config()
	cfg.JWT.PrivateKey[0] = 'X'
	cfg.SSO.DefaultRoles[0] = "admin"

	again := env.engine.Config()
	if again.JWT.PrivateKey[0] == 'X' || again.SSO.DefaultRoles[0] == "admin" {
		t.Fatal("Config must return a deep copy")
	}
}
