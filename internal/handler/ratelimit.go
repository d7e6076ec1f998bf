package handler

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures per-IP throttling.
type RateLimiterConfig struct {
	Rate            rate.Limit
	Burst           int
	CleanupInterval time.Duration
}

// PerMinute converts a requests-per-minute budget into a RateLimiterConfig.
func PerMinute(requests, burst int) RateLimiterConfig {
	if requests <= 0 {
		requests = 120
	}
	if burst <= 0 {
		burst = 1
	}
	return RateLimiterConfig{
		Rate:            rate.Limit(float64(requests) / 60.0),
		Burst:           burst,
		CleanupInterval: 5 * time.Minute,
	}
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter keeps one token bucket per client IP. It throttles floods
// in front of the engine; the per-account login guard lives in the engine.
type IPRateLimiter struct {
	config RateLimiterConfig

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter starts a background loop evicting idle entries. Call Stop
// when done.
func NewIPRateLimiter(config RateLimiterConfig) *IPRateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &IPRateLimiter{
		config:   config,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Middleware rejects requests over the budget with 429 and Retry-After.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		res := rl.get(ip).Reserve()
		if delay := res.Delay(); delay > 0 {
			res.Cancel()
			slog.WarnContext(r.Context(), "ip rate limit exceeded", slog.String("ip", ip))
			writeError(w, &jobAuth.RateLimitError{RetryAfter: delay, Scope: "ip"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Len returns the number of tracked IPs.
func (rl *IPRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *IPRateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if l, ok := rl.limiters[ip]; ok {
		l.lastAccess = now
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst), lastAccess: now}
	rl.limiters[ip] = l
	return l.limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops entries idle for more than two cleanup intervals.
func (rl *IPRateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.limiters {
		if now.Sub(l.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}

// clientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already applied X-Forwarded-For when the router uses it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
