package jobAuth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/jobAuth/internal"
)

func registerAlice(t *testing.T, env *testEnv) (*Account, string) {
	t.Helper()

	account, err := env.engine.Register(context.Background(), RegisterInput{
		Email:     "Alice@Example.com",
		Password:  testPassword,
		FirstName: "Alice",
		LastName:  "Applicant",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	mail, ok := env.mailer.last("activation")
	if !ok {
		t.Fatal("expected activation mail")
	}
	return account, mail.token
}

func TestRegisterCreatesDisabledUnactivatedAccount(t *testing.T) {
	env := newTestEnv(t, testConfig())

	account, token := registerAlice(t, env)

	stored := env.accounts.get(account.ID)
	if stored.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %q", stored.Email)
	}
	if stored.Enabled || stored.Activated {
		t.Fatal("expected disabled and unactivated account")
	}
	if stored.AuthProvider != ProviderLocal {
		t.Fatalf("expected local provider, got %q", stored.AuthProvider)
	}
	if stored.ActivationTokenHash == "" || stored.ActivationTokenHash == token {
		t.Fatal("expected only the token hash to be stored")
	}
	if got := stored.ActivationTokenExpiry.Sub(env.clock.Now()); got != 24*time.Hour {
		t.Fatalf("expected 24h activation window, got %s", got)
	}
	if strings.Contains(stored.PasswordHash, testPassword) {
		t.Fatal("password stored in clear")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "alice@example.com")

	_, err := env.engine.Register(context.Background(), RegisterInput{Email: "ALICE@example.com", Password: testPassword})
	if !errors.Is(err, ErrEmailAlreadyInUse) {
		t.Fatalf("expected ErrEmailAlreadyInUse, got %v", err)
	}
	if env.mailer.count("activation") != 0 {
		t.Fatal("no mail expected for duplicate registration")
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t, testConfig())

	cases := []struct {
		name  string
		input RegisterInput
		want  error
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Password: testPassword}, ErrInvalidEmail},
		{"display name", RegisterInput{Email: "Alice <alice@example.com>", Password: testPassword}, ErrInvalidEmail},
		{"short password", RegisterInput{Email: "alice@example.com", Password: "short"}, ErrPasswordPolicy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.engine.Register(context.Background(), tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRegisterSanitizesProfile(t *testing.T) {
	env := newTestEnv(t, testConfig())

	account, err := env.engine.Register(context.Background(), RegisterInput{
		Email:     "bob@example.com",
		Password:  testPassword,
		FirstName: "<script>alert(1)</script>Bob",
		LastName:  strings.Repeat("x", 300),
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if account.FirstName != "Bob" {
		t.Fatalf("expected sanitized first name, got %q", account.FirstName)
	}
	if len(account.LastName) != 100 {
		t.Fatalf("expected truncated last name, got %d bytes", len(account.LastName))
	}
}

func TestRegisterMailerFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.mailer.err = errBackendDown

	_, err := env.engine.Register(context.Background(), RegisterInput{Email: "alice@example.com", Password: testPassword})
	if !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
	if _, err := env.accounts.GetByEmail(context.Background(), "alice@example.com"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestActivateThenLogin(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account, token := registerAlice(t, env)

	res, err := env.engine.Activate(context.Background(), token)
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if res.AlreadyActivated || res.AccountID != account.ID {
		t.Fatalf("unexpected result: %+v", res)
	}

	stored := env.accounts.get(account.ID)
	if !stored.Activated || !stored.Enabled {
		t.Fatal("expected activated and enabled")
	}
	if stored.ActivationTokenHash != "" || !stored.ActivationTokenExpiry.IsZero() {
		t.Fatal("expected activation token cleared")
	}

	if _, err := env.engine.Login(context.Background(), "alice@example.com", testPassword); err != nil {
		t.Fatalf("login after activation failed: %v", err)
	}
}

func TestActivateReplayIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account, token := registerAlice(t, env)

	if _, err := env.engine.Activate(context.Background(), token); err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	before := env.accounts.get(account.ID)
	updates := env.accounts.updateCalls

	res, err := env.engine.Activate(context.Background(), token)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !res.AlreadyActivated || res.AccountID != account.ID {
		t.Fatalf("expected AlreadyActivated, got %+v", res)
	}
	if env.accounts.updateCalls != updates {
		t.Fatal("replay must not mutate the account")
	}
	if after := env.accounts.get(account.ID); after.Version != before.Version {
		t.Fatalf("version changed on replay: %d -> %d", before.Version, after.Version)
	}
}

func TestActivateReplayNearExpiryIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account, token := registerAlice(t, env)

	env.advance(24*time.Hour - 30*time.Second)
	if _, err := env.engine.Activate(context.Background(), token); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	env.advance(time.Minute)
	res, err := env.engine.Activate(context.Background(), token)
	if err != nil {
		t.Fatalf("replay after original expiry failed: %v", err)
	}
	if !res.AlreadyActivated || res.AccountID != account.ID {
		t.Fatalf("expected AlreadyActivated, got %+v", res)
	}

	if ttl := env.mr.TTL("aac:" + internal.HashToken(token)); ttl <= 23*time.Hour {
		t.Fatalf("expected the replay record to last a full activation window, got %s", ttl)
	}
}

func TestActivateZeroExpiryIsExpired(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account, token := registerAlice(t, env)

	stored := env.accounts.get(account.ID)
	stored.ActivationTokenExpiry = time.Time{}
	env.accounts.put(stored)

	if _, err := env.engine.Activate(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired for a token without expiry, got %v", err)
	}
}

func TestActivateUnknownAndExpired(t *testing.T) {
	env := newTestEnv(t, testConfig())
	_, token := registerAlice(t, env)

	if _, err := env.engine.Activate(context.Background(), "dW5rbm93bi10b2tlbg"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
	if _, err := env.engine.Activate(context.Background(), "%%%"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for malformed token, got %v", err)
	}

	env.advance(25 * time.Hour)
	if _, err := env.engine.Activate(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestResendActivationRegeneratesToken(t *testing.T) {
	env := newTestEnv(t, testConfig())
	account, first := registerAlice(t, env)

	already, err := env.engine.ResendActivation(context.Background(), "alice@example.com")
	if err != nil || already {
		t.Fatalf("resend failed: already=%v err=%v", already, err)
	}
	mail, _ := env.mailer.last("activation")
	if mail.token == first {
		t.Fatal("expected a fresh token")
	}

	if _, err := env.engine.Activate(context.Background(), first); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected previous token invalidated, got %v", err)
	}
	if _, err := env.engine.Activate(context.Background(), mail.token); err != nil {
		t.Fatalf("activate with new token failed: %v", err)
	}
	if !env.accounts.get(account.ID).Activated {
		t.Fatal("expected activated")
	}
}

func TestResendActivationCooldown(t *testing.T) {
	env := newTestEnv(t, testConfig())
	registerAlice(t, env)

	if _, err := env.engine.ResendActivation(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first resend failed: %v", err)
	}
	_, err := env.engine.ResendActivation(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if retry, ok := RetryAfter(err); !ok || retry <= 0 {
		t.Fatalf("expected retry hint, got %s", retry)
	}

	env.advance(61 * time.Second)
	if _, err := env.engine.ResendActivation(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("resend after cooldown failed: %v", err)
	}
}

func TestResendActivationUnknownAndActivated(t *testing.T) {
	env := newTestEnv(t, testConfig())
	env.seedLocal(t, "a1", "active@example.com")

	already, err := env.engine.ResendActivation(context.Background(), "ghost@example.com")
	if err != nil || already {
		t.Fatalf("expected silent success, got already=%v err=%v", already, err)
	}

	already, err = env.engine.ResendActivation(context.Background(), "active@example.com")
	if err != nil || !already {
		t.Fatalf("expected AlreadyActivated, got already=%v err=%v", already, err)
	}
	if env.mailer.count("activation") != 0 {
		t.Fatal("no mail expected")
	}
}
