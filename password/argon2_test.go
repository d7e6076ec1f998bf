package password

import (
	"errors"
	"strings"
	"testing"
)

// fastConfig keeps key derivation cheap; tests exercise encoding and policy,
// not the cost of argon2 itself.
func fastConfig() Config {
	return Config{
		Memory:      minMemoryKB,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func mustHasher(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	a, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func mustHash(t *testing.T, a *Argon2, pw string) string {
	t.Helper()
	h, err := a.Hash(pw)
	if err != nil {
		t.Fatalf("Hash(%q): %v", pw, err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	a := mustHasher(t, fastConfig())
	hash := mustHash(t, a, "applicant-Secret-1")

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if again := mustHash(t, a, "applicant-Secret-1"); again == hash {
		t.Fatal("two hashes of one password must use different salts")
	}

	tests := []struct {
		candidate string
		want      bool
	}{
		{"applicant-Secret-1", true},
		{"applicant-secret-1", false},
		{"applicant-Secret-1 ", false},
		{"", false},
	}
	for _, tt := range tests {
		ok, err := a.Verify(tt.candidate, hash)
		if err != nil {
			t.Fatalf("Verify(%q): %v", tt.candidate, err)
		}
		if ok != tt.want {
			t.Errorf("Verify(%q) = %v, want %v", tt.candidate, ok, tt.want)
		}
	}
}

func TestVerifyUsesParametersFromHash(t *testing.T) {
	older := mustHasher(t, fastConfig())
	hash := mustHash(t, older, "legacy-password")

	stronger := fastConfig()
	stronger.Memory = 2 * minMemoryKB
	stronger.Time = 2
	current := mustHasher(t, stronger)

	ok, err := current.Verify("legacy-password", hash)
	if err != nil || !ok {
		t.Fatalf("hash from older parameters must still verify: ok=%v err=%v", ok, err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	base := fastConfig()
	hash := mustHash(t, mustHasher(t, base), "upgrade-me-please")

	tests := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"same parameters", func(*Config) {}, false},
		{"more memory", func(c *Config) { c.Memory *= 2 }, true},
		{"more passes", func(c *Config) { c.Time = 3 }, true},
		{"more lanes", func(c *Config) { c.Parallelism = 4 }, true},
		{"different key length", func(c *Config) { c.KeyLength = 64 }, true},
		{"longer salt only", func(c *Config) { c.SaltLength = 32 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			got, err := mustHasher(t, cfg).NeedsUpgrade(hash)
			if err != nil {
				t.Fatalf("NeedsUpgrade: %v", err)
			}
			if got != tt.want {
				t.Fatalf("NeedsUpgrade = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeRejectsMalformedHashes(t *testing.T) {
	a := mustHasher(t, fastConfig())
	good := mustHash(t, a, "well-formed-pass")
	fields := strings.Split(good, "$")

	tests := map[string]string{
		"not phc":         "not-a-phc-hash",
		"bcrypt":          "$2a$10$abcdefghijklmnopqrstuuABCDEFGHIJKLMNOPQRSTUVWXYZ01234",
		"wrong algorithm": strings.Replace(good, "$argon2id$", "$argon2i$", 1),
		"old version":     strings.Replace(good, "$v=19$", "$v=16$", 1),
		"missing version": strings.Replace(good, "$v=19$", "$19$", 1),
		"memory too low":  strings.Replace(good, "m=8192", "m=1024", 1),
		"zero passes":     strings.Replace(good, "t=1", "t=0", 1),
		"duplicate param": strings.Replace(good, "t=1", "m=8192", 1),
		"unknown param":   strings.Replace(good, "p=1", "x=1", 1),
		"two params":      strings.Replace(good, ",p=1", "", 1),
		"short salt":      strings.Join(append(append([]string{}, fields[:4]...), "c2FsdA==", fields[5]), "$"),
		"salt not base64": strings.Join(append(append([]string{}, fields[:4]...), "!!!", fields[5]), "$"),
		"empty key":       strings.Join(append(append([]string{}, fields[:5]...), ""), "$"),
		"trailing field":  good + "$extra",
	}
	for name, encoded := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := a.Verify("well-formed-pass", encoded); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("Verify: expected ErrMalformedHash, got %v", err)
			}
			if _, err := a.NeedsUpgrade(encoded); !errors.Is(err, ErrMalformedHash) {
				t.Fatalf("NeedsUpgrade: expected ErrMalformedHash, got %v", err)
			}
		})
	}
}

func TestLengthPolicy(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 16
	a := mustHasher(t, cfg)

	tests := []struct {
		pw   string
		want error
	}{
		{"", ErrTooShort},
		{"1234567", ErrTooShort},
		{"12345678", nil},
		{strings.Repeat("x", 16), nil},
		{strings.Repeat("x", 17), ErrTooLong},
		// multi-byte runes count by byte: 4 runes, 12 bytes
		{"日本語語", nil},
	}
	for _, tt := range tests {
		err := a.CheckPolicy(tt.pw)
		if !errors.Is(err, tt.want) {
			t.Errorf("CheckPolicy(%q) = %v, want %v", tt.pw, err, tt.want)
		}
		if _, hashErr := a.Hash(tt.pw); !errors.Is(hashErr, tt.want) {
			t.Errorf("Hash(%q) = %v, want %v", tt.pw, hashErr, tt.want)
		}
	}
}

func TestVerifyRejectsOversizedInputBeforeDerivation(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 64
	a := mustHasher(t, cfg)
	hash := mustHash(t, a, "ordinary-password")

	if _, err := a.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
	// oversized input is rejected even against garbage hashes
	if _, err := a.Verify(strings.Repeat("c", 65), "garbage"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong ahead of decoding, got %v", err)
	}
}

func TestDefaultLengthBounds(t *testing.T) {
	a := mustHasher(t, fastConfig())

	if err := a.CheckPolicy(strings.Repeat("d", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("password of exactly %d bytes rejected: %v", DefaultMaxPasswordBytes, err)
	}
	if err := a.CheckPolicy(strings.Repeat("d", DefaultMaxPasswordBytes+1)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong above the default maximum, got %v", err)
	}
	if err := a.CheckPolicy(strings.Repeat("d", DefaultMinPasswordBytes-1)); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort below the default minimum, got %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	tests := map[string]func(*Config){
		"low memory":       func(c *Config) { c.Memory = 1024 },
		"zero time":        func(c *Config) { c.Time = 0 },
		"zero parallelism": func(c *Config) { c.Parallelism = 0 },
		"short salt":       func(c *Config) { c.SaltLength = 8 },
		"short key":        func(c *Config) { c.KeyLength = 8 },
		"negative min":     func(c *Config) { c.MinPasswordBytes = -1 },
		"max below min":    func(c *Config) { c.MinPasswordBytes = 12; c.MaxPasswordBytes = 10 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := fastConfig()
			mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected config to be rejected")
			}
		})
	}
}

func TestPlaceholderMatchesNoPassword(t *testing.T) {
	a := mustHasher(t, fastConfig())

	first, err := a.Placeholder()
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	second, err := a.Placeholder()
	if err != nil {
		t.Fatalf("Placeholder: %v", err)
	}
	if first == second {
		t.Fatal("placeholders must differ")
	}
	for _, guess := range []string{"", "password", "placeholder"} {
		if ok, err := a.Verify(guess, first); err != nil || ok {
			t.Fatalf("Verify(%q) on placeholder: ok=%v err=%v", guess, ok, err)
		}
	}
	if up, err := a.NeedsUpgrade(first); err != nil || up {
		t.Fatalf("placeholder should use current parameters: up=%v err=%v", up, err)
	}
}
