// Package m2m obtains service-to-service access tokens with the OAuth2
// client-credentials grant (golang.org/x/oauth2/clientcredentials) and caches
// them in a cache.Store.
//
// Cache failures never fail a call: the client logs them and falls back to
// the token endpoint. Concurrent misses share one upstream request.
package m2m

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// expirySkew is subtracted from the token lifetime so a cached token is
	// never handed out right before it lapses.
	expirySkew = 60 * time.Second

	// DefaultCacheKey is the single well-known cache entry holding the token.
	DefaultCacheKey     = "m2m:access_token"
	defaultFetchTimeout = 10 * time.Second
)

// ErrTokenEndpoint is returned when the token endpoint answers with an error
// or an unusable body.
var ErrTokenEndpoint = errors.New("m2m: token endpoint error")

// Config configures a [Client].
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Scope is space separated.
	Scope string
	// CacheKey defaults to DefaultCacheKey.
	CacheKey   string
	HTTPClient *http.Client
	// FetchTimeout bounds one token endpoint exchange. The exchange is
	// detached from the caller's cancellation because concurrent callers
	// share it.
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// Client is safe for concurrent use.
type Client struct {
	cfg    Config
	creds  *clientcredentials.Config
	cache  cache.Store
	client *http.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewClient validates cfg. store may be nil, in which case every call goes to
// the token endpoint.
func NewClient(cfg Config, store cache.Store) (*Client, error) {
	if cfg.TokenURL == "" {
		return nil, errors.New("m2m: token url is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("m2m: client credentials are required")
	}
	if cfg.CacheKey == "" {
		cfg.CacheKey = DefaultCacheKey
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	c := &Client{
		cfg: cfg,
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       strings.Fields(cfg.Scope),
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		cache:  store,
		client: cfg.HTTPClient,
		logger: cfg.Logger,
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: cfg.FetchTimeout}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// AccessToken returns the cached token or fetches a new one.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cache != nil {
		raw, err := c.cache.Get(ctx, c.cfg.CacheKey)
		switch {
		case err == nil && len(raw) > 0:
			return string(raw), nil
		case err != nil && !errors.Is(err, cache.ErrMiss):
			c.logger.WarnContext(ctx, "m2m token cache read failed", "error", err)
		}
	}
	return c.fetchShared(ctx)
}

// ForceRefresh drops the cached token and fetches a new one.
func (c *Client) ForceRefresh(ctx context.Context) (string, error) {
	if c.cache != nil {
		if err := c.cache.Del(ctx, c.cfg.CacheKey); err != nil {
			c.logger.WarnContext(ctx, "m2m token cache delete failed", "error", err)
		}
	}
	return c.fetchShared(ctx)
}

// fetchShared collapses concurrent misses into one exchange. Each caller
// still stops waiting when its own ctx ends.
func (c *Client) fetchShared(ctx context.Context) (string, error) {
	ch := c.group.DoChan(c.cfg.CacheKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.FetchTimeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	tok, err := c.creds.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		var re *oauth2.RetrieveError
		var ue *url.Error
		switch {
		case errors.As(err, &re):
			return "", fmt.Errorf("%w: status %d", ErrTokenEndpoint, re.Response.StatusCode)
		case errors.As(err, &ue):
			return "", fmt.Errorf("m2m: token request failed: %w", err)
		default:
			// missing access_token or an undecodable body
			return "", fmt.Errorf("%w: %v", ErrTokenEndpoint, err)
		}
	}

	if c.cache != nil && !tok.Expiry.IsZero() {
		ttl := time.Until(tok.Expiry).Round(time.Second) - expirySkew
		if ttl > 0 {
			if err := c.cache.Set(ctx, c.cfg.CacheKey, []byte(tok.AccessToken), ttl); err != nil {
				c.logger.WarnContext(ctx, "m2m token cache write failed", "error", err)
			}
		}
	}
	return tok.AccessToken, nil
}
