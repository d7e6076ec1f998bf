// Package app wires configuration, backends and the HTTP router into the
// jobauthd process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/internal/config"
	"github.com/MrEthical07/jobAuth/internal/handler"
	"github.com/MrEthical07/jobAuth/internal/logger"
	"github.com/MrEthical07/jobAuth/internal/observability"
	"github.com/MrEthical07/jobAuth/metrics/export/prometheus"
	"github.com/MrEthical07/jobAuth/store/postgres"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// Init loads .env and the environment, then installs the JSON logger as the
// slog default.
func Init(w io.Writer) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
	return cfg, nil
}

// Run is the process entry point. args is os.Args[1:].
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// Lightweight commands skip full initialization.
	switch cmd {
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/healthz", port))
	case CommandHashPassword:
		return runHashPassword(w, readTerminalPassword, jobAuth.DefaultConfig().Password)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting jobauthd",
		slog.String("command", string(cmd)),
		slog.String("version", Version),
		slog.String("env", cfg.AppEnv),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe builds the engine and serves HTTP until SIGINT or SIGTERM.
func runServe(cfg *config.Config) error {
	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv, Version); err != nil {
		return fmt.Errorf("failed to init sentry: %w", err)
	}
	defer observability.FlushSentry()

	ctx := context.Background()

	b, err := newBackends(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer b.close()

	engine, err := jobAuth.New().
		WithConfig(cfg.Auth).
		WithCache(b.cache).
		WithAccountStore(b.accounts).
		WithMailer(b.mailer).
		WithIdentityVerifier(b.verifier).
		WithAuditSink(jobAuth.NewSlogSink(slog.Default())).
		WithLogger(slog.Default()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer engine.Close()

	logSecurityReport(slog.Default(), engine.SecurityReport())

	metrics, err := prometheus.Handler(engine)
	if err != nil {
		return fmt.Errorf("failed to build metrics handler: %w", err)
	}

	limiter := handler.NewIPRateLimiter(handler.PerMinute(cfg.RateLimitPerMinute, cfg.RateLimitBurst))
	defer limiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		Engine:      engine,
		Logger:      slog.Default(),
		RateLimiter: limiter,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	slog.Info("shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate applies Postgres migrations. The SQLite store migrates itself
// on open, so there is nothing to do for it here.
func runMigrate(cfg *config.Config) error {
	if cfg.StoreBackend != config.StorePostgres {
		slog.Info("no migrations to run", slog.String("store", cfg.StoreBackend))
		return nil
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck GETs url and fails unless it answers 200.
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func logSecurityReport(l *slog.Logger, report jobAuth.SecurityReport) {
	l.Info("security posture",
		slog.String("signing_algorithm", report.SigningAlgorithm),
		slog.Bool("refresh_rotation", report.RefreshRotation),
		slog.Bool("revocation_fail_closed", report.RevocationFailClosed),
		slog.Bool("login_guard_fail_open", report.LoginGuardFailOpen),
		slog.Bool("cookies_secure", report.CookiesSecure),
	)
	for _, w := range report.Warnings {
		l.Warn("security warning", slog.String("warning", w))
	}
}

// maskDatabaseURL hides credentials in log output.
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
