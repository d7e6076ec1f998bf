// Package config loads jobauthd settings from the environment.
//
// Values are read once at startup and treated as immutable. A .env file in
// the working directory is loaded first when present; real environment
// variables win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/joho/godotenv"
)

// Account store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheBolt   = "bolt"
	CacheMemory = "memory"
)

// Config holds every setting of the jobauthd service.
type Config struct {
	// Server
	ServerPort string
	LogLevel   string
	AppEnv     string
	SentryDSN  string

	// Account store
	StoreBackend string
	DatabaseURL  string
	SQLitePath   string

	// Cache
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BoltPath      string

	// SSO
	GoogleClientIDs []string

	// Notification service. An empty endpoint selects the log mailer.
	NotificationURL string
	ActivationURL   string
	ResetURL        string

	// Client credentials for calls to other backends.
	M2MTokenURL     string
	M2MClientID     string
	M2MClientSecret string
	M2MScope        string

	// Per-IP request throttling in front of every route.
	RateLimitPerMinute int
	RateLimitBurst     int

	// Auth is the engine configuration derived from the variables above.
	Auth jobAuth.Config
}

// LoadDotEnv loads the given files (default ".env") into the process
// environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads Config from the environment. Every missing required variable is
// reported in one error.
func Load() (*Config, error) {
	cfg := &Config{}
	var missing []string

	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.AppEnv = getEnvString("APP_ENV", "development")
	cfg.SentryDSN = getEnvString("SENTRY_DSN", "")

	cfg.StoreBackend = getEnvString("ACCOUNT_STORE", StorePostgres)
	switch cfg.StoreBackend {
	case StorePostgres:
		cfg.DatabaseURL = required("DATABASE_URL")
	case StoreSQLite:
		cfg.SQLitePath = getEnvString("SQLITE_PATH", "jobauth.db")
	case StoreMemory:
	default:
		return nil, fmt.Errorf("unknown ACCOUNT_STORE %q", cfg.StoreBackend)
	}

	cfg.CacheBackend = getEnvString("CACHE_BACKEND", CacheRedis)
	switch cfg.CacheBackend {
	case CacheRedis:
		cfg.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
		cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
		cfg.RedisDB = getEnvInt("REDIS_DB", 0)
	case CacheBolt:
		cfg.BoltPath = getEnvString("BOLT_PATH", "jobauth-cache.db")
	case CacheMemory:
	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	cfg.GoogleClientIDs = getEnvList("GOOGLE_CLIENT_IDS")

	cfg.NotificationURL = getEnvString("NOTIFICATION_URL", "")
	if cfg.NotificationURL != "" {
		cfg.ActivationURL = required("ACTIVATION_URL")
		cfg.ResetURL = required("RESET_URL")
	}

	cfg.M2MTokenURL = getEnvString("M2M_TOKEN_URL", "")
	if cfg.M2MTokenURL != "" {
		cfg.M2MClientID = required("M2M_CLIENT_ID")
		cfg.M2MClientSecret = required("M2M_CLIENT_SECRET")
		cfg.M2MScope = getEnvString("M2M_SCOPE", "")
	}

	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", 120)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 30)

	signing := getEnvString("JWT_SIGNING_METHOD", "ed25519")
	privateKey := required("JWT_PRIVATE_KEY")
	var publicKey string
	if signing == "ed25519" {
		publicKey = required("JWT_PUBLIC_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	auth := jobAuth.DefaultConfig()
	auth.JWT.SigningMethod = signing
	auth.JWT.PrivateKey = []byte(privateKey)
	if publicKey != "" {
		auth.JWT.PublicKey = []byte(publicKey)
	}
	auth.JWT.Issuer = getEnvString("JWT_ISSUER", auth.JWT.Issuer)
	auth.JWT.Audience = getEnvString("JWT_AUDIENCE", "")
	auth.JWT.KeyID = getEnvString("JWT_KEY_ID", "")
	auth.JWT.AccessTTL = getEnvDuration("ACCESS_TOKEN_TTL", auth.JWT.AccessTTL)
	auth.JWT.RefreshTTL = getEnvDuration("REFRESH_TOKEN_TTL", auth.JWT.RefreshTTL)

	auth.Session.RotateRefreshTokens = getEnvBool("ROTATE_REFRESH_TOKENS", false)
	auth.Session.CookieSecure = getEnvBool("COOKIE_SECURE", true)
	auth.Session.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	auth.Login.MaxAttempts = getEnvInt("LOGIN_MAX_ATTEMPTS", auth.Login.MaxAttempts)
	auth.Login.Window = getEnvDuration("LOGIN_WINDOW", auth.Login.Window)
	auth.Login.FailOpen = getEnvBool("LOGIN_FAIL_OPEN", false)
	auth.Revocation.FailClosed = getEnvBool("REVOCATION_FAIL_CLOSED", false)

	auth.EmailChange.RequireOTP = getEnvBool("EMAIL_CHANGE_REQUIRE_OTP", true)
	auth.Metrics.EnableLatencyHistograms = getEnvBool("METRICS_LATENCY_HISTOGRAMS", true)

	if err := auth.Validate(); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}
	cfg.Auth = auth

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
