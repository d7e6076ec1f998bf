package jobAuth

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
	internalaudit "github.com/MrEthical07/jobAuth/internal/audit"
	internalflows "github.com/MrEthical07/jobAuth/internal/flows"
	"github.com/MrEthical07/jobAuth/jwt"
)

// Engine is the authentication core. Every method delegates to exactly one
// flow in internal/flows.
//
// Engine instances are built by [Builder.Build], immutable afterwards and safe
// for concurrent use.
type Engine struct {
	config  Config
	deps    *internalflows.Deps
	cache   cache.Store
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	logger  *slog.Logger
	clock   func() time.Time
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the buffer
// was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the in-process counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	if e == nil || e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

func (e *Engine) flowDeps() *internalflows.Deps {
	if e == nil || e.deps == nil {
		return &internalflows.Deps{Errors: flowErrors()}
	}
	return e.deps
}

// IssueAccessToken signs an access token for identity carrying roles.
func (e *Engine) IssueAccessToken(identity string, roles []string) (string, error) {
	deps := e.flowDeps()
	if deps.Tokens == nil {
		return "", ErrEngineNotReady
	}
	token, _, err := deps.Tokens.CreateAccess(identity, roles)
	return token, err
}

// IssueRefreshToken signs a refresh token for identity.
func (e *Engine) IssueRefreshToken(identity string) (string, error) {
	deps := e.flowDeps()
	if deps.Tokens == nil {
		return "", ErrEngineNotReady
	}
	token, _, err := deps.Tokens.CreateRefresh(identity)
	return token, err
}

// VerifyServiceToken checks signature, type and expiry of a bearer access
// token for another backend system.
//
// It does NOT consult the revocation registry: a token revoked by logout is
// reported valid here until it expires. Callers needing revocation coverage
// must use [Engine.Verify].
func (e *Engine) VerifyServiceToken(ctx context.Context, bearer string) (*ServiceTokenResult, error) {
	return internalflows.RunVerifyServiceToken(ctx, bearer, e.flowDeps())
}

// Health pings the cache and the account store.
func (e *Engine) Health(ctx context.Context) Health {
	var ping func(context.Context) error
	if e != nil && e.cache != nil {
		ping = e.cache.Ping
	}
	return internalflows.RunHealth(ctx, ping, e.flowDeps())
}

// TokenManager exposes the signer for components that verify tokens locally.
func (e *Engine) TokenManager() *jwt.Manager {
	return e.flowDeps().Tokens
}
