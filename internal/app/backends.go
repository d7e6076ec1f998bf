package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/cache"
	"github.com/MrEthical07/jobAuth/internal/config"
	"github.com/MrEthical07/jobAuth/m2m"
	"github.com/MrEthical07/jobAuth/mailer"
	"github.com/MrEthical07/jobAuth/sso"
	"github.com/MrEthical07/jobAuth/store/memstore"
	"github.com/MrEthical07/jobAuth/store/postgres"
	"github.com/MrEthical07/jobAuth/store/sqlite"
	"github.com/redis/go-redis/v9"
)

const outboundTimeout = 10 * time.Second

// backends holds the engine's collaborators and closes them in reverse order.
type backends struct {
	cache    cache.Store
	accounts jobAuth.AccountStore
	mailer   jobAuth.Mailer
	verifier jobAuth.IdentityVerifier
	closers  []func()
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func newBackends(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backends, error) {
	b := &backends{}
	ok := false
	defer func() {
		if !ok {
			b.close()
		}
	}()

	if err := b.openCache(ctx, cfg); err != nil {
		return nil, err
	}
	if err := b.openStore(ctx, cfg); err != nil {
		return nil, err
	}
	if err := b.buildMailer(cfg, logger); err != nil {
		return nil, err
	}
	if err := b.buildVerifier(cfg); err != nil {
		return nil, err
	}

	ok = true
	return b, nil
}

func (b *backends) openCache(ctx context.Context, cfg *config.Config) error {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		b.closers = append(b.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.cache = cache.NewRedisStore(client)
		slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	case config.CacheBolt:
		store, err := cache.OpenBoltStore(cfg.BoltPath)
		if err != nil {
			return fmt.Errorf("failed to open bolt cache: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.cache = store
		slog.Warn("bolt cache selected; state is local to this instance", slog.String("path", cfg.BoltPath))
	case config.CacheMemory:
		b.cache = cache.NewMemoryStore()
		slog.Warn("in-memory cache selected; state is lost on restart")
	default:
		return fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	return nil
}

func (b *backends) openStore(ctx context.Context, cfg *config.Config) error {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.accounts = store
		slog.Info("database connection established")
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite: %w", err)
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		b.accounts = store
		slog.Info("sqlite store opened", slog.String("path", cfg.SQLitePath))
	case config.StoreMemory:
		b.accounts = memstore.New()
		slog.Warn("in-memory account store selected; accounts are lost on restart")
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return nil
}

func (b *backends) buildMailer(cfg *config.Config, logger *slog.Logger) error {
	if cfg.NotificationURL == "" {
		b.mailer = mailer.LogMailer{Logger: logger}
		slog.Warn("NOTIFICATION_URL not set; mail is written to the log")
		return nil
	}

	client, err := b.outboundClient(cfg, logger)
	if err != nil {
		return err
	}
	m, err := mailer.NewNotificationMailer(mailer.NotificationConfig{
		Endpoint:      cfg.NotificationURL,
		ActivationURL: cfg.ActivationURL,
		ResetURL:      cfg.ResetURL,
		HTTPClient:    client,
	})
	if err != nil {
		return fmt.Errorf("failed to build mailer: %w", err)
	}
	b.mailer = m
	return nil
}

// outboundClient authenticates calls to other backends with a client
// credentials token when M2M is configured.
func (b *backends) outboundClient(cfg *config.Config, logger *slog.Logger) (*http.Client, error) {
	client := &http.Client{Timeout: outboundTimeout}
	if cfg.M2MTokenURL == "" {
		return client, nil
	}

	tokens, err := m2m.NewClient(m2m.Config{
		TokenURL:     cfg.M2MTokenURL,
		ClientID:     cfg.M2MClientID,
		ClientSecret: cfg.M2MClientSecret,
		Scope:        cfg.M2MScope,
		HTTPClient:   &http.Client{Timeout: outboundTimeout},
		FetchTimeout: outboundTimeout,
		Logger:       logger,
	}, b.cache)
	if err != nil {
		return nil, fmt.Errorf("failed to build m2m client: %w", err)
	}
	client.Transport = &m2m.Transport{Client: tokens}
	return client, nil
}

func (b *backends) buildVerifier(cfg *config.Config) error {
	if len(cfg.GoogleClientIDs) == 0 {
		slog.Info("GOOGLE_CLIENT_IDS not set; SSO is disabled")
		return nil
	}

	v, err := sso.NewGoogleVerifier(sso.GoogleConfig{
		ClientIDs:  cfg.GoogleClientIDs,
		HTTPClient: &http.Client{Timeout: outboundTimeout},
	})
	if err != nil {
		return fmt.Errorf("failed to build google verifier: %w", err)
	}
	b.verifier = v
	return nil
}
