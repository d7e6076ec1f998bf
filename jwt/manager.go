package jwt

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the JWS algorithm used for access and refresh tokens.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA over an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

// TokenType distinguishes access and refresh tokens through the typ claim.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

var (
	// ErrWrongType is returned when a well-formed token carries the other typ.
	ErrWrongType = errors.New("jwt: unexpected token type")
	// ErrUnknownKey is returned when the kid header names no configured key.
	ErrUnknownKey = errors.New("jwt: unknown signing key")
	// ErrIssuedInFuture is returned when iat is beyond Config.MaxFutureIAT.
	ErrIssuedInFuture = errors.New("jwt: token issued in the future")
	// ErrVerifyOnly is returned by Create* on a manager without a private key.
	ErrVerifyOnly = errors.New("jwt: manager has no signing key")
)

const (
	maxLeeway          = 2 * time.Minute
	defaultFutureIAT   = 10 * time.Minute
	maxFutureIATLimit  = 24 * time.Hour
	minHMACSecretBytes = 32
)

// Config defines signing keys, lifetimes and validation rules.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	// PrivateKey is the Ed25519 private key (raw or PEM) or the HMAC secret.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	Leeway     time.Duration
	RequireIAT bool
	// MaxFutureIAT bounds clock skew on iat. Zero means 10 minutes.
	MaxFutureIAT time.Duration
	// KeyID is written to the kid header of every issued token.
	KeyID string
	// VerifyKeys, when set, is the only source of verification keys and
	// every token must carry a kid found in it.
	VerifyKeys map[string][]byte
	// Now overrides the wall clock. Nil uses time.Now.
	Now func() time.Time
}

// Claims is the claim set carried by both token types.
type Claims struct {
	Roles []string  `json:"roles,omitempty"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Remaining returns the time left until expiry, never negative.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Time.Sub(now), 0)
}

// keyring holds keys decoded once at construction.
type keyring struct {
	method  jwt.SigningMethod
	signKey any
	// byKID is non-nil when Config.VerifyKeys is set.
	byKID map[string]any
	// single verifies tokens when there is no kid map.
	single any
}

// Manager issues and parses jobAuth tokens.
//
// Manager is immutable after NewManager and safe for concurrent use.
type Manager struct {
	cfg    Config
	keys   keyring
	parser *jwt.Parser
}

// NewManager validates cfg, decodes its keys and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	if err := normalize(&cfg); err != nil {
		return nil, err
	}

	keys, err := loadKeys(cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{cfg: cfg, keys: keys}
	m.parser = jwt.NewParser(m.parserOptions()...)
	return m, nil
}

func normalize(cfg *Config) error {
	switch {
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return errors.New("jwt: access and refresh TTL must be positive")
	case cfg.Leeway < 0 || cfg.Leeway > maxLeeway:
		return fmt.Errorf("jwt: leeway must be between 0 and %s", maxLeeway)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = defaultFutureIAT
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > maxFutureIATLimit {
		return fmt.Errorf("jwt: MaxFutureIAT must be between 0 and %s", maxFutureIATLimit)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return fmt.Errorf("jwt: KeyID %q is not present in VerifyKeys", cfg.KeyID)
		}
	}
	return nil
}

func loadKeys(cfg Config) (keyring, error) {
	var k keyring
	var decode func([]byte) (any, error)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < minHMACSecretBytes {
			return k, fmt.Errorf("jwt: hs256 requires a secret of at least %d bytes", minHMACSecretBytes)
		}
		k.method = jwt.SigningMethodHS256
		k.signKey = cfg.PrivateKey
		k.single = cfg.PrivateKey
		decode = func(b []byte) (any, error) { return b, nil }
	case MethodEd25519:
		k.method = jwt.SigningMethodEdDSA
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return k, err
			}
			k.signKey = priv
		}
		if len(cfg.PublicKey) > 0 {
			pub, err := parseEdPublicKey(cfg.PublicKey)
			if err != nil {
				return k, err
			}
			k.single = pub
		}
		if k.single == nil && len(cfg.VerifyKeys) == 0 {
			return k, errors.New("jwt: ed25519 requires a public key or verify key set")
		}
		decode = func(b []byte) (any, error) { return parseEdPublicKey(b) }
	default:
		return k, fmt.Errorf("jwt: unsupported signing method %q", cfg.SigningMethod)
	}

	if len(cfg.VerifyKeys) > 0 {
		k.byKID = make(map[string]any, len(cfg.VerifyKeys))
		for kid, raw := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return k, errors.New("jwt: verify key set contains an empty kid")
			}
			key, err := decode(raw)
			if err != nil {
				return k, fmt.Errorf("jwt: verify key %q: %w", kid, err)
			}
			k.byKID[kid] = key
		}
	}
	return k, nil
}

func (m *Manager) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.keys.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.cfg.Now),
	}
	if m.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(m.cfg.Leeway))
	}
	if m.cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if m.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience))
	}
	return opts
}

// AccessTTL returns the configured access token lifetime.
func (m *Manager) AccessTTL() time.Duration { return m.cfg.AccessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

// AcceptedFor reports how much longer Parse will accept a token carrying c,
// leeway included. Zero means Parse already rejects it as expired.
func (m *Manager) AcceptedFor(c *Claims, now time.Time) time.Duration {
	if c == nil || c.ExpiresAt == nil {
		return 0
	}
	return max(c.ExpiresAt.Time.Add(m.cfg.Leeway).Sub(now), 0)
}

// CreateAccess signs an access token for subject carrying roles.
func (m *Manager) CreateAccess(subject string, roles []string) (string, *Claims, error) {
	return m.issue(subject, roles, TypeAccess, m.cfg.AccessTTL)
}

// CreateRefresh signs a refresh token for subject. Refresh tokens carry no
// roles; they are re-read from the account store on refresh.
func (m *Manager) CreateRefresh(subject string) (string, *Claims, error) {
	return m.issue(subject, nil, TypeRefresh, m.cfg.RefreshTTL)
}

func (m *Manager) issue(subject string, roles []string, typ TokenType, ttl time.Duration) (string, *Claims, error) {
	if subject == "" {
		return "", nil, errors.New("jwt: empty subject")
	}
	if m.keys.signKey == nil {
		return "", nil, ErrVerifyOnly
	}

	now := m.cfg.Now()
	claims := &Claims{
		Roles: append([]string(nil), roles...),
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			Issuer:    m.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if m.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}

	token := jwt.NewWithClaims(m.keys.method, claims)
	if m.cfg.KeyID != "" {
		token.Header["kid"] = m.cfg.KeyID
	}
	signed, err := token.SignedString(m.keys.signKey)
	if err != nil {
		return "", nil, fmt.Errorf("jwt: sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// Parse verifies signature, registered claims and the typ claim.
func (m *Manager) Parse(tokenStr string, want TokenType) (*Claims, error) {
	token, err := m.parser.ParseWithClaims(tokenStr, &Claims{}, m.verifyKey)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.Type != want {
		return nil, ErrWrongType
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(m.cfg.Now().Add(m.cfg.MaxFutureIAT)) {
		return nil, ErrIssuedInFuture
	}
	return claims, nil
}

// verifyKey picks the key for t by its kid header.
func (m *Manager) verifyKey(t *jwt.Token) (any, error) {
	if t.Method.Alg() != m.keys.method.Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing algorithm %s", t.Method.Alg())
	}
	kid, _ := t.Header["kid"].(string)

	if m.keys.byKID != nil {
		key, ok := m.keys.byKID[kid]
		if !ok {
			return nil, ErrUnknownKey
		}
		return key, nil
	}
	if m.cfg.KeyID != "" && kid != m.cfg.KeyID {
		return nil, ErrUnknownKey
	}
	if m.keys.single == nil {
		return nil, ErrUnknownKey
	}
	return m.keys.single, nil
}

// IsExpired reports whether err came from an expired exp claim.
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}

// Fingerprint is the revocation key for a token: hex SHA-256 of its compact form.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func parseEdPrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	if len(raw) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(raw), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 private key")
	}
	key, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: PEM block is not an ed25519 private key")
	}
	return key, nil
}

func parseEdPublicKey(raw []byte) (ed25519.PublicKey, error) {
	if len(raw) == ed25519.PublicKeySize {
		return ed25519.PublicKey(raw), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(raw)
	if err != nil {
		return nil, errors.New("jwt: invalid ed25519 public key")
	}
	key, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwt: PEM block is not an ed25519 public key")
	}
	return key, nil
}
