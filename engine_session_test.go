package jobAuth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/jobAuth/jwt"
)

func TestLoginIssuesAccessAndRefresh(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "  Alice@Example.com ", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.AccountID != "a1" || sess.AccessToken == "" || sess.RefreshToken == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if got := sess.AccessExpiresAt.Sub(env.clock.Now()); got != 5*time.Hour {
		t.Fatalf("expected 5h access lifetime, got %s", got)
	}

	principal, err := env.engine.Verify(context.Background(), sess.AccessToken)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if principal.Subject != "a1" || len(principal.Roles) != 1 || principal.Roles[0] != "applicant" {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestLoginWrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	_, errWrong := env.engine.Login(context.Background(), "alice@example.com", "wrong-password-1")
	_, errUnknown := env.engine.Login(context.Background(), "nobody@example.com", "wrong-password-1")

	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("responses differ: %q vs %q", errWrong, errUnknown)
	}
}

func TestLoginRateLimitedOnSixthAttempt(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	for i := 0; i < 5; i++ {
		if _, err := env.engine.Login(context.Background(), "alice@example.com", "wrong-password-1"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	_, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	retry, ok := RetryAfter(err)
	if !ok || retry <= 0 || retry > time.Minute {
		t.Fatalf("expected retry hint in (0, 1m], got %s (ok=%v)", retry, ok)
	}

	env.advance(61 * time.Second)
	if _, err := env.engine.Login(context.Background(), "alice@example.com", testPassword); err != nil {
		t.Fatalf("expected login after window to succeed, got %v", err)
	}
}

func TestLoginSuccessResetsAttemptCounter(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	for i := 0; i < 4; i++ {
		_, _ = env.engine.Login(context.Background(), "alice@example.com", "wrong-password-1")
	}
	if _, err := env.engine.Login(context.Background(), "alice@example.com", testPassword); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if env.mr.Exists("al:alice@example.com") {
		t.Fatal("expected attempt counter deleted after success")
	}
}

func TestLoginNotActivatedConsumesAttempt(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account := env.seedLocal(t, "a1", "alice@example.com")
	account.Activated = false
	account.Enabled = false
	env.accounts.put(account)

	_, err := env.engine.Login(context.Background(), "alice@example.com", "not-even-checked")
	if !errors.Is(err, ErrAccountNotActivated) {
		t.Fatalf("expected ErrAccountNotActivated, got %v", err)
	}
	got, err := env.rdb.Get(context.Background(), "al:alice@example.com").Int()
	if err != nil || got != 1 {
		t.Fatalf("expected one attempt recorded, got %d (%v)", got, err)
	}
}

func TestLoginRejectsSSOAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedExternal(t, "a1", "sso@example.com")

	_, err := env.engine.Login(context.Background(), "sso@example.com", testPassword)
	if !errors.Is(err, ErrForbiddenForSsoUser) {
		t.Fatalf("expected ErrForbiddenForSsoUser, got %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account := env.seedLocal(t, "a1", "alice@example.com")
	account.Enabled = false
	env.accounts.put(account)

	if _, err := env.engine.Login(context.Background(), "alice@example.com", testPassword); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestLoginFailsClosedWhenCacheDown(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")
	env.mr.Close()

	_, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestLoginFailOpenWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Login.FailOpen = true
	env := newTestEnv(t, cfg)
	env.seedLocal(t, "a1", "alice@example.com")
	env.mr.Close()

	if _, err := env.engine.Login(context.Background(), "alice@example.com", testPassword); err != nil {
		t.Fatalf("expected fail-open login to succeed, got %v", err)
	}
}

func TestRefreshReturnsSameRefreshTokenByDefault(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	env.advance(time.Second)

	next, err := env.engine.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if next.RefreshToken != sess.RefreshToken {
		t.Fatal("expected refresh token to be returned unchanged")
	}
	if next.AccessToken == sess.AccessToken {
		t.Fatal("expected a new access token")
	}
}

func TestRefreshRotationRevokesOldToken(t *testing.T) {
	cfg := testConfig()
	cfg.Session.RotateRefreshTokens = true
	env := newTestEnv(t, cfg)
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	next, err := env.engine.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if next.RefreshToken == "" || next.RefreshToken == sess.RefreshToken {
		t.Fatal("expected a rotated refresh token")
	}
	if _, err := env.engine.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected old refresh token revoked, got %v", err)
	}
}

func TestRefreshPicksUpRoleChangesAndDisabledAccounts(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	account := env.accounts.get("a1")
	account.Roles = []string{"applicant", "recruiter"}
	env.accounts.put(account)

	next, err := env.engine.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(next.Roles) != 2 {
		t.Fatalf("expected refreshed roles, got %v", next.Roles)
	}

	account = env.accounts.get("a1")
	account.Enabled = false
	env.accounts.put(account)
	if _, err := env.engine.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := env.engine.Refresh(context.Background(), sess.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := env.engine.Verify(context.Background(), sess.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid verifying a refresh token, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	env.advance(5*time.Hour + time.Minute)

	if _, err := env.engine.Verify(context.Background(), sess.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestLogoutRevokesBothTokens(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := env.engine.Logout(context.Background(), sess.AccessToken, sess.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	if _, err := env.engine.Verify(context.Background(), sess.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if _, err := env.engine.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked for refresh, got %v", err)
	}

	ttl := env.mr.TTL("arv:" + jwt.Fingerprint(sess.AccessToken))
	if limit := 5*time.Hour + testConfig().JWT.Leeway; ttl <= 0 || ttl > limit {
		t.Fatalf("expected revocation TTL bounded by access lifetime plus leeway, got %s", ttl)
	}
}

func TestLogoutInsideLeewayStillRevokes(t *testing.T) {
	cfg := testConfig()
	env := newTestEnv(t, cfg)
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// past exp but still inside the parser's leeway
	env.advance(cfg.JWT.AccessTTL + cfg.JWT.Leeway/3)
	if _, err := env.engine.Verify(context.Background(), sess.AccessToken); err != nil {
		t.Fatalf("expected token accepted inside leeway, got %v", err)
	}

	if err := env.engine.Logout(context.Background(), sess.AccessToken, sess.RefreshToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := env.engine.Verify(context.Background(), sess.AccessToken); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout inside leeway, got %v", err)
	}

	ttl := env.mr.TTL("arv:" + jwt.Fingerprint(sess.AccessToken))
	if ttl <= 0 || ttl > cfg.JWT.Leeway {
		t.Fatalf("expected revocation to outlive the leeway only, got %s", ttl)
	}
}

func TestLogoutSucceedsWhenCacheDown(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	env.mr.Close()

	if err := env.engine.Logout(context.Background(), sess.AccessToken, sess.RefreshToken); err != nil {
		t.Fatalf("expected best-effort logout, got %v", err)
	}
	if got := env.engine.MetricsSnapshot().Counters[MetricRevocationWriteFailed]; got != 2 {
		t.Fatalf("expected 2 revocation write failures counted, got %d", got)
	}
}

func TestLogoutIgnoresGarbage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if err := env.engine.Logout(context.Background(), "garbage", ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestCheckSessionSlidesAccessToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	env.advance(time.Hour)

	renewed, err := env.engine.CheckSession(context.Background(), sess.AccessToken)
	if err != nil {
		t.Fatalf("check session failed: %v", err)
	}
	if !renewed.AccessExpiresAt.After(sess.AccessExpiresAt) {
		t.Fatalf("expected later expiry, got %s vs %s", renewed.AccessExpiresAt, sess.AccessExpiresAt)
	}
	if renewed.RefreshToken != "" {
		t.Fatal("check session must not mint a refresh token")
	}
}

func TestVerifyServiceTokenIgnoresRevocation(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	sess, err := env.engine.Login(context.Background(), "alice@example.com", testPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if err := env.engine.Logout(context.Background(), sess.AccessToken, ""); err != nil {
		t.Fatalf("logout failed: %v", err)
	}

	res, err := env.engine.VerifyServiceToken(context.Background(), sess.AccessToken)
	if err != nil {
		t.Fatalf("service verify failed: %v", err)
	}
	if !res.Valid || res.Subject != "a1" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := env.engine.VerifyServiceToken(context.Background(), "nope"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestIssueTokensDirectly(t *testing.T) {
	env := newTestEnv(t, testConfig())

	access, err := env.engine.IssueAccessToken("svc-1", []string{"system"})
	if err != nil {
		t.Fatalf("issue access failed: %v", err)
	}
	refresh, err := env.engine.IssueRefreshToken("svc-1")
	if err != nil {
		t.Fatalf("issue refresh failed: %v", err)
	}

	principal, err := env.engine.Verify(context.Background(), access)
	if err != nil || principal.Subject != "svc-1" {
		t.Fatalf("verify failed: %v %+v", err, principal)
	}
	claims, err := env.engine.TokenManager().Parse(refresh, jwt.TypeRefresh)
	if err != nil || claims.Subject != "svc-1" {
		t.Fatalf("parse refresh failed: %v", err)
	}
}

func TestZeroEngineNotReady(t *testing.T) {
	var e Engine
	if _, err := e.Login(context.Background(), "a@b.co", "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.IssueAccessToken("a", nil); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestHealthReportsCacheOutage(t *testing.T) {
	env := newTestEnv(t, testConfig())
	if h := env.engine.Health(context.Background()); !h.OK() {
		t.Fatalf("expected healthy, got %+v", h)
	}
	env.mr.Close()
	if h := env.engine.Health(context.Background()); h.OK() || h.CacheErr == nil {
		t.Fatalf("expected cache error, got %+v", h)
	}
}
