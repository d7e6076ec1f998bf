//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/cache"
	"github.com/MrEthical07/jobAuth/store/memstore"
	"github.com/MrEthical07/jobAuth/store/postgres"
	"github.com/MrEthical07/jobAuth/store/sqlite"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testPassword = "integration-password-1"

// redisMode describes which Redis backend a suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes returns the set of Redis backends to test. miniredis is always
// available. A real standalone Redis is added when REDIS_ADDR is set, and a
// cluster when REDIS_CLUSTER_ADDRS is set (comma-separated).
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() { _ = rdb.Close(); mr.Close() }
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				return rdb, func() { rdb.FlushDB(context.Background()); _ = rdb.Close() }
			},
		})
	}

	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				t.Helper()
				rdb := redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis cluster: %v", err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}

	return modes
}

func splitAddrs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// storeMode describes an account store backend. memstore and SQLite always
// run; Postgres runs when DATABASE_URL is set.
type storeMode struct {
	name  string
	setup func(t *testing.T) jobAuth.AccountStore
}

func storeModes(t *testing.T) []storeMode {
	t.Helper()
	modes := []storeMode{
		{
			name:  "memstore",
			setup: func(*testing.T) jobAuth.AccountStore { return memstore.New() },
		},
		{
			name: "sqlite",
			setup: func(t *testing.T) jobAuth.AccountStore {
				t.Helper()
				s, err := sqlite.Open(context.Background(), t.TempDir()+"/accounts.db")
				if err != nil {
					t.Fatalf("sqlite open: %v", err)
				}
				t.Cleanup(func() { _ = s.Close() })
				return s
			},
		},
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		modes = append(modes, storeMode{
			name: "postgres",
			setup: func(t *testing.T) jobAuth.AccountStore {
				t.Helper()
				if err := postgres.Migrate(url); err != nil {
					t.Skipf("cannot migrate Postgres: %v", err)
				}
				s, err := postgres.Open(context.Background(), url)
				if err != nil {
					t.Skipf("cannot connect to Postgres: %v", err)
				}
				t.Cleanup(s.Close)
				return s
			},
		})
	}
	return modes
}

type capturedMail struct {
	kind, email, secret string
}

// captureMailer records every message so tests can follow emailed links.
type captureMailer struct {
	mu   sync.Mutex
	sent []capturedMail
}

func (m *captureMailer) record(kind, email, secret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, capturedMail{kind: kind, email: email, secret: secret})
	return nil
}

func (m *captureMailer) SendActivation(_ context.Context, email, token string) error {
	return m.record("activation", email, token)
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, token string) error {
	return m.record("reset", email, token)
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string) error {
	return m.record("otp", email, code)
}

func (m *captureMailer) last(kind string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i].secret
		}
	}
	return ""
}

func integrationConfig() jobAuth.Config {
	cfg := jobAuth.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("integration-signing-key-0123456789abcdef")
	cfg.JWT.PublicKey = nil
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Audit.Enabled = false
	return cfg
}

func newIntegrationEngine(t *testing.T, cfg jobAuth.Config, c cache.Store, accounts jobAuth.AccountStore) (*jobAuth.Engine, *captureMailer) {
	t.Helper()

	mail := &captureMailer{}
	engine, err := jobAuth.New().
		WithConfig(cfg).
		WithCache(c).
		WithAccountStore(accounts).
		WithMailer(mail).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mail
}

// registerAndActivate walks the self-service signup path and returns a
// logged-in session.
func registerAndActivate(t *testing.T, engine *jobAuth.Engine, mail *captureMailer, email string) *jobAuth.Session {
	t.Helper()
	ctx := context.Background()

	if _, err := engine.Register(ctx, jobAuth.RegisterInput{Email: email, Password: testPassword}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := engine.Activate(ctx, mail.last("activation")); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	sess, err := engine.Login(ctx, email, testPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return sess
}
