package flows

import (
	"context"
	"time"
)

// AuthProvider records how an account proves its identity.
type AuthProvider string

const (
	// ProviderLocal accounts log in with email and password.
	ProviderLocal AuthProvider = "local"
	// ProviderExternal accounts were created through SSO and carry an unusable
	// password hash until the owner sets one.
	ProviderExternal AuthProvider = "external"
)

// Account is the persisted applicant identity. Activation and reset tokens are
// stored as SHA-256 hex hashes; a zero expiry means no token is pending.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	AuthProvider AuthProvider
	Enabled      bool
	Activated    bool
	Roles        []string

	ActivationTokenHash   string
	ActivationTokenExpiry time.Time
	ResetTokenHash        string
	ResetTokenExpiry      time.Time

	FirstName string
	LastName  string
	Phone     string

	// Version is compared and bumped by AccountStore.Update.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Roles = append([]string(nil), a.Roles...)
	return &out
}

// AccountStore is the primary account persistence collaborator.
//
// Lookups return the store's not-found sentinel when nothing matches. Create
// and Update return the email-in-use sentinel on a unique email violation.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByActivationTokenHash(ctx context.Context, hash string) (*Account, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*Account, error)
	// Create inserts account inside a transaction and calls commit before
	// committing it. A commit error rolls the insert back and is returned.
	Create(ctx context.Context, account *Account, commit func(context.Context) error) error
	// Update persists account when its Version matches the stored row and
	// increments Version on success.
	Update(ctx context.Context, account *Account) error
	Ping(ctx context.Context) error
}

// Mailer delivers the one-time secrets of every flow. Template rendering is
// the implementation's concern.
type Mailer interface {
	SendActivation(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendOTP(ctx context.Context, email, code string) error
}

// Identity is the verified content of an external ID token.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	ExpiresAt     time.Time
}

// IdentityVerifier validates an external identity token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*Identity, error)
}

// RegisterInput is the payload of a self-service registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// Session is an issued credential pair. RefreshToken is empty when only an
// access token was minted.
type Session struct {
	AccountID        string
	Roles            []string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	// Created is set by SSO login when the account was created by this call.
	Created bool
}

// Principal is the verified identity behind an access token.
type Principal struct {
	Subject   string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
}

// ServiceTokenResult answers the inter-service verification endpoint.
type ServiceTokenResult struct {
	Valid     bool
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// ActivationResult reports whether the account was already active. Neither
// case is an error.
type ActivationResult struct {
	AccountID        string
	AlreadyActivated bool
}
