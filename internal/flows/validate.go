package flows

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/MrEthical07/jobAuth/internal/stores"
	"github.com/MrEthical07/jobAuth/jwt"
	"github.com/microcosm-cc/bluemonday"
)

const maxEmailBytes = 254

var profilePolicy = bluemonday.StrictPolicy()

func wrapDependency(sentinel, err error) error {
	if err == nil {
		return nil
	}
	if sentinel == nil || errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// validEmail accepts a bare addr-spec, nothing with a display name.
func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailBytes {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// tokenExpired treats a zero expiry as already expired.
func tokenExpired(expiry, now time.Time) bool {
	return expiry.IsZero() || !now.Before(expiry)
}

func sanitizeProfile(value string, limit int) string {
	clean := strings.TrimSpace(profilePolicy.Sanitize(value))
	if len(clean) > limit {
		clean = clean[:limit]
	}
	return clean
}

func (d *Deps) checkPasswordPolicy(pw string) error {
	if err := d.Passwords.CheckPolicy(pw); err != nil {
		return fmt.Errorf("%w: %v", d.Errors.PasswordPolicy, err)
	}
	return nil
}

// loadAccount passes the not-found sentinel through and wraps anything else
// as a dependency error.
func (d *Deps) loadAccount(account *Account, err error) (*Account, error) {
	if err != nil {
		if errors.Is(err, d.Errors.AccountNotFound) {
			return nil, err
		}
		return nil, d.dependency(err)
	}
	return account, nil
}

func (d *Deps) saveAccount(ctx context.Context, account *Account) error {
	account.UpdatedAt = d.Now().UTC()
	err := d.Accounts.Update(ctx, account)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, d.Errors.EmailAlreadyInUse),
		errors.Is(err, d.Errors.VersionConflict),
		errors.Is(err, d.Errors.AccountNotFound):
		return err
	default:
		return d.dependency(err)
	}
}

// parseToken verifies signature, typ and expiry, then consults the
// revocation registry.
func (d *Deps) parseToken(ctx context.Context, token string, typ jwt.TokenType) (*jwt.Claims, error) {
	if token == "" {
		return nil, d.Errors.TokenInvalid
	}
	claims, err := d.Tokens.Parse(token, typ)
	if err != nil {
		if jwt.IsExpired(err) {
			return nil, d.Errors.TokenExpired
		}
		return nil, d.Errors.TokenInvalid
	}

	revoked, err := d.Revocations.IsRevoked(ctx, jwt.Fingerprint(token))
	if err != nil {
		d.MetricInc(d.Metrics.RevocationReadFailed)
		if d.Settings.RevocationFailClosed {
			return nil, d.dependency(err)
		}
		d.Logger.WarnContext(ctx, "revocation lookup failed, accepting token", "error", err)
		return claims, nil
	}
	if revoked {
		return nil, d.Errors.TokenRevoked
	}
	return claims, nil
}

// revoke blacklists token for as long as the parser would still accept it,
// which runs past exp by the configured leeway. Failures are logged and
// counted, never returned.
func (d *Deps) revoke(ctx context.Context, token string, claims *jwt.Claims) {
	if token == "" || claims == nil {
		return
	}
	ttl := d.Tokens.AcceptedFor(claims, d.Now())
	if err := d.Revocations.Revoke(ctx, jwt.Fingerprint(token), ttl); err != nil {
		d.MetricInc(d.Metrics.RevocationWriteFailed)
		d.Logger.WarnContext(ctx, "token revocation failed", "subject", claims.Subject, "error", err)
	}
}

func (d *Deps) issueSession(account *Account, withRefresh bool) (*Session, error) {
	access, accessClaims, err := d.Tokens.CreateAccess(account.ID, account.Roles)
	if err != nil {
		return nil, err
	}
	s := &Session{
		AccountID:       account.ID,
		Roles:           append([]string(nil), account.Roles...),
		AccessToken:     access,
		AccessExpiresAt: accessClaims.ExpiresAt.Time,
	}
	if !withRefresh {
		return s, nil
	}
	refresh, refreshClaims, err := d.Tokens.CreateRefresh(account.ID)
	if err != nil {
		return nil, err
	}
	s.RefreshToken = refresh
	s.RefreshExpiresAt = refreshClaims.ExpiresAt.Time
	return s, nil
}

// accountUsable rejects accounts that may not hold a session.
func (d *Deps) accountUsable(account *Account) error {
	if !account.Activated {
		return d.Errors.AccountNotActivated
	}
	if !account.Enabled {
		return d.Errors.AccountDisabled
	}
	return nil
}

func (d *Deps) rateLimited(scope string, retryAfter time.Duration) error {
	d.MetricInc(d.Metrics.RateLimitHit)
	return d.Errors.RateLimited(scope, retryAfter)
}

func proofMapErr(d *Deps, err error) error {
	switch {
	case errors.Is(err, stores.ErrProofNotFound), errors.Is(err, stores.ErrProofMismatch):
		return d.Errors.TokenInvalid
	default:
		return d.dependency(err)
	}
}
