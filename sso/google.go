// Package sso verifies Google ID tokens for jobAuth.
//
// Signatures are checked locally against Google's published certificates
// through google.golang.org/api/idtoken; only the certificate set is fetched
// over the network, and it is cached between calls. Audience, issuer, subject,
// email and expiry are then checked here. A token that fails any check maps
// to jobAuth.ErrIdentityRejected; a certificate fetch that cannot complete is
// returned as a plain error, which the engine treats as an outage.
package sso

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

// TokenValidator checks an ID token signature and returns its payload.
// *idtoken.Validator implements it. An empty audience skips the audience
// check; GoogleVerifier matches audiences itself.
type TokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleConfig configures [GoogleVerifier].
type GoogleConfig struct {
	// ClientIDs lists the accepted audiences. At least one is required.
	ClientIDs []string
	// HTTPClient fetches Google's certificates.
	HTTPClient *http.Client
	// Validator replaces the idtoken validator, mainly in tests.
	Validator TokenValidator
	Now       func() time.Time
}

// GoogleVerifier implements jobAuth.IdentityVerifier.
type GoogleVerifier struct {
	clientIDs []string
	validator TokenValidator
	now       func() time.Time
}

// NewGoogleVerifier validates cfg and returns a verifier.
func NewGoogleVerifier(cfg GoogleConfig) (*GoogleVerifier, error) {
	if len(cfg.ClientIDs) == 0 {
		return nil, errors.New("sso: at least one client id is required")
	}
	v := &GoogleVerifier{
		clientIDs: append([]string(nil), cfg.ClientIDs...),
		validator: cfg.Validator,
		now:       cfg.Now,
	}
	if v.validator == nil {
		client := cfg.HTTPClient
		if client == nil {
			client = &http.Client{Timeout: 5 * time.Second}
		}
		client = withCertStatusErrors(client)
		// WithHTTPClient keeps idtoken from looking up application default
		// credentials; the certificate endpoint is public.
		validator, err := idtoken.NewValidator(context.Background(), option.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("sso: build idtoken validator: %w", err)
		}
		v.validator = validator
	}
	if v.now == nil {
		v.now = time.Now
	}
	return v, nil
}

// Verify implements jobAuth.IdentityVerifier.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*jobAuth.Identity, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty token", jobAuth.ErrIdentityRejected)
	}

	payload, err := v.validator.Validate(ctx, idToken, "")
	if err != nil {
		if outage(ctx, err) {
			return nil, fmt.Errorf("sso: validate id token: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", jobAuth.ErrIdentityRejected, err)
	}

	if !slices.Contains(v.clientIDs, payload.Audience) {
		return nil, fmt.Errorf("%w: audience mismatch", jobAuth.ErrIdentityRejected)
	}
	if !slices.Contains(googleIssuers, payload.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer", jobAuth.ErrIdentityRejected)
	}
	email := claimString(payload.Claims, "email")
	if email == "" || payload.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject or email", jobAuth.ErrIdentityRejected)
	}

	expiresAt := time.Unix(payload.Expires, 0).UTC()
	if !v.now().Before(expiresAt) {
		return nil, fmt.Errorf("%w: token expired", jobAuth.ErrIdentityRejected)
	}

	return &jobAuth.Identity{
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: claimBool(payload.Claims, "email_verified"),
		GivenName:     claimString(payload.Claims, "given_name"),
		FamilyName:    claimString(payload.Claims, "family_name"),
		ExpiresAt:     expiresAt,
	}, nil
}

// outage reports errors that say nothing about the token itself: the
// certificate fetch failed or the caller gave up.
func outage(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

func claimString(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// claimBool accepts both the JSON boolean Google signs and the string form
// older tokens carried.
func claimBool(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// errCertsUnavailable marks a 5xx from the certificate endpoint.
var errCertsUnavailable = errors.New("sso: certificate endpoint unavailable")

type certStatusTransport struct {
	base http.RoundTripper
}

// RoundTrip turns 5xx answers into transport errors so they surface as
// *url.Error and count as outages rather than rejected tokens.
func (t certStatusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", errCertsUnavailable, resp.StatusCode)
	}
	return resp, nil
}

func withCertStatusErrors(client *http.Client) *http.Client {
	out := *client
	base := out.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	out.Transport = certStatusTransport{base: base}
	return &out
}

var _ jobAuth.IdentityVerifier = (*GoogleVerifier)(nil)
