package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB   = 8 * 1024
	minSaltLength = 16
	minKeyLength  = 16

	// DefaultMinPasswordBytes applies when Config.MinPasswordBytes is zero.
	DefaultMinPasswordBytes = 8
	// DefaultMaxPasswordBytes applies when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024

	placeholderSecretBytes = 48
)

var (
	// ErrTooShort is returned for passwords below the configured minimum.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong is returned for passwords above the configured maximum.
	ErrTooLong = errors.New("password too long")
)

// Config holds argon2id cost parameters and length bounds.
type Config struct {
	// Memory is in KiB.
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MinPasswordBytes and MaxPasswordBytes bound raw UTF-8 length. Zero
	// selects the package defaults.
	MinPasswordBytes int
	MaxPasswordBytes int
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password: memory must be at least %d KiB", minMemoryKB)
	case c.Time < 1:
		return errors.New("password: time cost must be at least 1")
	case c.Parallelism < 1:
		return errors.New("password: parallelism must be at least 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password: salt must be at least %d bytes", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password: key must be at least %d bytes", minKeyLength)
	case c.MinPasswordBytes < 0 || c.MaxPasswordBytes < 0:
		return errors.New("password: length bounds must not be negative")
	}
	return nil
}

// Argon2 hashes and verifies passwords. Safe for concurrent use.
type Argon2 struct {
	cost    params
	saltLen uint32
	keyLen  uint32
	minLen  int
	maxLen  int
}

// NewArgon2 validates cfg and fills length defaults.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &Argon2{
		cost:    params{memory: cfg.Memory, time: cfg.Time, parallelism: cfg.Parallelism},
		saltLen: cfg.SaltLength,
		keyLen:  cfg.KeyLength,
		minLen:  cfg.MinPasswordBytes,
		maxLen:  cfg.MaxPasswordBytes,
	}
	if a.minLen == 0 {
		a.minLen = DefaultMinPasswordBytes
	}
	if a.maxLen == 0 {
		a.maxLen = DefaultMaxPasswordBytes
	}
	if a.maxLen < a.minLen {
		return nil, errors.New("password: max length must not be below min length")
	}
	return a, nil
}

// CheckPolicy reports whether password satisfies the length bounds.
// Raw bytes are measured as provided; no Unicode normalization.
func (a *Argon2) CheckPolicy(password string) error {
	switch n := len(password); {
	case n < a.minLen:
		return fmt.Errorf("%w: must be at least %d bytes", ErrTooShort, a.minLen)
	case n > a.maxLen:
		return fmt.Errorf("%w: must be at most %d bytes", ErrTooLong, a.maxLen)
	}
	return nil
}

// Hash returns a PHC-encoded argon2id hash of password.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.CheckPolicy(password); err != nil {
		return "", err
	}
	return a.derive([]byte(password))
}

// Placeholder returns a valid hash of a random secret nobody knows. Accounts
// created through SSO store it so the password column is never empty yet no
// password can match it.
func (a *Argon2) Placeholder() (string, error) {
	secret := make([]byte, placeholderSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return a.derive([]byte(base64.RawURLEncoding.EncodeToString(secret)))
}

func (a *Argon2) derive(password []byte) (string, error) {
	salt := make([]byte, a.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: read salt: %w", err)
	}
	h := phc{params: a.cost, salt: salt}
	h.key = argon2.IDKey(password, salt, h.time, h.memory, h.parallelism, a.keyLen)
	return h.String(), nil
}

// Verify compares password against encodedHash in constant time, using the
// cost parameters recorded in the hash. Oversized input is rejected before
// any key derivation.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.maxLen {
		return false, ErrTooLong
	}
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	key := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(key, h.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker costs or
// a different key length than the current configuration.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	h, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return h.weakerThan(a.cost) || uint32(len(h.key)) != a.keyLen, nil
}
