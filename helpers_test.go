package jobAuth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "correct-password-123"

type mockAccountStore struct {
	mu       sync.Mutex
	accounts map[string]*Account

	getErr    error
	updateErr error
	createErr error

	createCalls int
	updateCalls int
}

func newMockAccountStore() *mockAccountStore {
	return &mockAccountStore{accounts: map[string]*Account{}}
}

func (m *mockAccountStore) find(match func(*Account) bool) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, a := range m.accounts {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, ErrAccountNotFound
}

func (m *mockAccountStore) GetByID(_ context.Context, id string) (*Account, error) {
	return m.find(func(a *Account) bool { return a.ID == id })
}

func (m *mockAccountStore) GetByEmail(_ context.Context, email string) (*Account, error) {
	return m.find(func(a *Account) bool { return a.Email == email })
}

func (m *mockAccountStore) GetByActivationTokenHash(_ context.Context, hash string) (*Account, error) {
	return m.find(func(a *Account) bool { return hash != "" && a.ActivationTokenHash == hash })
}

func (m *mockAccountStore) GetByResetTokenHash(_ context.Context, hash string) (*Account, error) {
	return m.find(func(a *Account) bool { return hash != "" && a.ResetTokenHash == hash })
}

func (m *mockAccountStore) Create(ctx context.Context, account *Account, commit func(context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCalls++
	if m.createErr != nil {
		return m.createErr
	}
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return ErrEmailAlreadyInUse
		}
	}
	if commit != nil {
		if err := commit(ctx); err != nil {
			return err
		}
	}
	stored := account.Clone()
	stored.Version = 1
	account.Version = 1
	m.accounts[stored.ID] = stored
	return nil
}

func (m *mockAccountStore) Update(_ context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	current, ok := m.accounts[account.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if current.Version != account.Version {
		return ErrVersionConflict
	}
	for _, a := range m.accounts {
		if a.ID != account.ID && a.Email == account.Email {
			return ErrEmailAlreadyInUse
		}
	}
	stored := account.Clone()
	stored.Version++
	account.Version = stored.Version
	m.accounts[stored.ID] = stored
	return nil
}

func (m *mockAccountStore) Ping(context.Context) error {
	return nil
}

func (m *mockAccountStore) put(a *Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.Version == 0 {
		a.Version = 1
	}
	m.accounts[a.ID] = a.Clone()
}

func (m *mockAccountStore) get(id string) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Clone()
}

type sentMail struct {
	kind  string
	email string
	token string
}

type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *mockMailer) record(kind, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{kind: kind, email: email, token: token})
	return nil
}

func (m *mockMailer) SendActivation(_ context.Context, email, token string) error {
	return m.record("activation", email, token)
}

func (m *mockMailer) SendPasswordReset(_ context.Context, email, token string) error {
	return m.record("reset", email, token)
}

func (m *mockMailer) SendOTP(_ context.Context, email, code string) error {
	return m.record("otp", email, code)
}

func (m *mockMailer) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

func (m *mockMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.kind == kind {
			n++
		}
	}
	return n
}

// stubVerifier maps raw id tokens to identities. Unknown tokens are rejected.
type stubVerifier struct {
	identities map[string]Identity
	err        error
}

func (s *stubVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	identity, ok := s.identities[idToken]
	if !ok {
		return nil, ErrIdentityRejected
	}
	return &identity, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	rdb      *redis.Client
	accounts *mockAccountStore
	mailer   *mockMailer
	verifier *stubVerifier
	clock    *testClock
}

func (env *testEnv) advance(d time.Duration) {
	env.clock.Advance(d)
	env.mr.FastForward(d)
}

func newTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.PublicKey = nil
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEnv(t testing.TB, cfg Config) *testEnv {
	t.Helper()
	return newTestEnvWithSink(t, cfg, nil)
}

func newTestEnvWithSink(t testing.TB, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:       mr,
		rdb:      rdb,
		accounts: newMockAccountStore(),
		mailer:   &mockMailer{},
		verifier: &stubVerifier{identities: map[string]Identity{}},
		clock:    newTestClock(),
	}

	engine, err := New().
		WithConfig(cfg).
		WithCache(cache.NewRedisStore(rdb)).
		WithAccountStore(env.accounts).
		WithMailer(env.mailer).
		WithIdentityVerifier(env.verifier).
		WithAuditSink(sink).
		WithClock(env.clock.Now).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	env.engine = engine

	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return env
}

// seedLocal stores an activated, enabled local account with testPassword.
func (env *testEnv) seedLocal(t testing.TB, id, email string) *Account {
	t.Helper()

	hash, err := env.engine.flowDeps().Passwords.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	account := &Account{
		ID:           id,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		AuthProvider: ProviderLocal,
		Enabled:      true,
		Activated:    true,
		Roles:        []string{"applicant"},
		CreatedAt:    env.clock.Now(),
		UpdatedAt:    env.clock.Now(),
	}
	env.accounts.put(account)
	return account
}

// seedExternal stores an SSO account with an unusable password.
func (env *testEnv) seedExternal(t testing.TB, id, email string) *Account {
	t.Helper()

	placeholder, err := env.engine.flowDeps().Passwords.Placeholder()
	if err != nil {
		t.Fatalf("placeholder failed: %v", err)
	}
	account := &Account{
		ID:           id,
		Email:        email,
		PasswordHash: placeholder,
		AuthProvider: ProviderExternal,
		Enabled:      true,
		Activated:    true,
		Roles:        []string{"applicant"},
	}
	env.accounts.put(account)
	return account
}

var errBackendDown = errors.New("backend down")
