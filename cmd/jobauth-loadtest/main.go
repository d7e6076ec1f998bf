// Command jobauth-loadtest measures Verify and Refresh throughput of an engine
// backed by Redis (or miniredis) and the in-memory account store.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/cache"
	"github.com/MrEthical07/jobAuth/password"
	"github.com/MrEthical07/jobAuth/store/memstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const loadPassword = "load-test-password-1"

// applicant is one seeded account's current token pair.
type applicant struct {
	mu      sync.Mutex
	access  string
	refresh string
}

type nopMailer struct{}

func (nopMailer) SendActivation(context.Context, string, string) error    { return nil }
func (nopMailer) SendPasswordReset(context.Context, string, string) error { return nil }
func (nopMailer) SendOTP(context.Context, string, string) error           { return nil }

type options struct {
	accounts    int
	concurrency int
	ops         int
	redisAddr   string
	rotate      bool
}

func main() {
	var opt options
	flag.IntVar(&opt.accounts, "sessions", 2000, "number of applicant sessions to seed")
	flag.IntVar(&opt.concurrency, "concurrency", 128, "number of concurrent workers")
	flag.IntVar(&opt.ops, "ops", 100000, "operations per phase")
	flag.StringVar(&opt.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR or an embedded miniredis is used")
	flag.BoolVar(&opt.rotate, "rotate", false, "rotate refresh tokens on every refresh")
	flag.Parse()

	if opt.accounts <= 0 || opt.concurrency <= 0 || opt.ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency and ops must be positive")
		os.Exit(2)
	}
	if err := run(context.Background(), opt); err != nil {
		fmt.Fprintf(os.Stderr, "jobauth-loadtest: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opt options) error {
	client, closeRedis, err := connectRedis(opt.redisAddr)
	if err != nil {
		return err
	}
	defer closeRedis()

	cfg := jobAuth.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("load-test-signing-key-0123456789abcdef")
	cfg.JWT.PublicKey = nil
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Session.RotateRefreshTokens = opt.rotate
	cfg.Audit.Enabled = false

	accounts := memstore.New()
	engine, err := jobAuth.New().
		WithConfig(cfg).
		WithCache(cache.NewRedisStore(client)).
		WithAccountStore(accounts).
		WithMailer(nopMailer{}).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	pool, err := seed(ctx, engine, accounts, cfg.Password, opt)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	verify := measure(opt, func(r *rand.Rand) error {
		a := &pool[r.IntN(len(pool))]
		a.mu.Lock()
		token := a.access
		a.mu.Unlock()
		_, err := engine.Verify(ctx, token)
		return err
	})
	refresh := measure(opt, func(r *rand.Rand) error {
		a := &pool[r.IntN(len(pool))]
		a.mu.Lock()
		defer a.mu.Unlock()
		sess, err := engine.Refresh(ctx, a.refresh)
		if err != nil {
			return err
		}
		a.access, a.refresh = sess.AccessToken, sess.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	fmt.Println("verify: ", verify)
	fmt.Println("refresh:", refresh)
	return nil
}

func connectRedis(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// seed stores activated accounts sharing one password hash, then logs each
// in concurrently.
func seed(ctx context.Context, engine *jobAuth.Engine, accounts *memstore.Store, pc jobAuth.PasswordConfig, opt options) ([]applicant, error) {
	hasher, err := password.NewArgon2(password.Config{
		Memory:           pc.Memory,
		Time:             pc.Time,
		Parallelism:      pc.Parallelism,
		SaltLength:       pc.SaltLength,
		KeyLength:        pc.KeyLength,
		MinPasswordBytes: pc.MinBytes,
		MaxPasswordBytes: pc.MaxBytes,
	})
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, err
	}

	fmt.Printf("seeding %d sessions...\n", opt.accounts)
	start := time.Now()
	for i := range opt.accounts {
		now := time.Now()
		err := accounts.Create(ctx, &jobAuth.Account{
			ID:           fmt.Sprintf("load-%d", i),
			Email:        loadEmail(i),
			PasswordHash: hash,
			AuthProvider: jobAuth.ProviderLocal,
			Enabled:      true,
			Activated:    true,
			Roles:        []string{"applicant"},
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil)
		if err != nil {
			return nil, err
		}
	}

	pool := make([]applicant, opt.accounts)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opt.concurrency)
	for i := range pool {
		g.Go(func() error {
			sess, err := engine.Login(gctx, loadEmail(i), loadPassword)
			if err != nil {
				return fmt.Errorf("login %s: %w", loadEmail(i), err)
			}
			pool[i].access, pool[i].refresh = sess.AccessToken, sess.RefreshToken
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fmt.Printf("seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return pool, nil
}

func loadEmail(i int) string { return fmt.Sprintf("load-%d@example.com", i) }

// measure runs op opt.ops times across opt.concurrency workers. Each worker
// keeps its own samples so timing is not serialised on a shared lock.
func measure(opt options, op func(r *rand.Rand) error) summary {
	var (
		next     atomic.Int64
		failures atomic.Int64
		wg       sync.WaitGroup
	)
	perWorker := make([][]time.Duration, opt.concurrency)

	start := time.Now()
	for w := range opt.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(w)))
			samples := make([]time.Duration, 0, opt.ops/opt.concurrency+1)
			for next.Add(1) <= int64(opt.ops) {
				t0 := time.Now()
				if err := op(r); err != nil {
					failures.Add(1)
				}
				samples = append(samples, time.Since(t0))
			}
			perWorker[w] = samples
		}()
	}
	wg.Wait()

	return summarize(time.Since(start), slices.Concat(perWorker...), failures.Load())
}

type summary struct {
	elapsed       time.Duration
	ops           int
	failures      int64
	p50, p95, p99 time.Duration
}

func summarize(elapsed time.Duration, samples []time.Duration, failures int64) summary {
	slices.Sort(samples)
	return summary{
		elapsed:  elapsed,
		ops:      len(samples),
		failures: failures,
		p50:      quantile(samples, 0.50),
		p95:      quantile(samples, 0.95),
		p99:      quantile(samples, 0.99),
	}
}

// quantile expects sorted samples.
func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(q*float64(len(sorted)-1))]
}

func (s summary) String() string {
	var rate float64
	if s.elapsed > 0 {
		rate = float64(s.ops) / s.elapsed.Seconds()
	}
	return fmt.Sprintf("ops=%d failures=%d elapsed=%s ops/sec=%.0f p50=%s p95=%s p99=%s",
		s.ops, s.failures, s.elapsed.Round(time.Millisecond), rate,
		s.p50.Round(time.Microsecond), s.p95.Round(time.Microsecond), s.p99.Round(time.Microsecond))
}
