package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

var (
	// ErrRateLimited means the identifier spent its attempts for the window.
	ErrRateLimited = errors.New("rate: too many login attempts")
	// ErrStoreUnavailable is returned instead of a decision when the counter
	// cannot be read and the guard fails closed.
	ErrStoreUnavailable = errors.New("rate: attempt counter unavailable")
)

// Config holds brute-force guard tuning parameters.
type Config struct {
	MaxLoginAttempts int
	LoginWindow      time.Duration
	// FailOpen allows attempts when the cache is unreachable.
	FailOpen bool
}

// Decision is the outcome of recording one attempt.
type Decision struct {
	Allowed    bool
	Attempts   int64
	RetryAfter time.Duration
	// Degraded is set when FailOpen let the attempt through during a cache outage.
	Degraded bool
}

// Limiter counts login attempts per normalized identifier in a fixed window.
type Limiter struct {
	store  cache.Store
	config Config
}

// New creates a [Limiter] backed by store.
func New(store cache.Store, cfg Config) *Limiter {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = time.Minute
	}
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// RecordAttempt increments the counter for identifier. Every attempt counts,
// successful or not; the caller resets on success. The window TTL is set only
// when the counter is created.
func (l *Limiter) RecordAttempt(ctx context.Context, identifier string) (Decision, error) {
	count, remaining, err := l.store.Incr(ctx, loginKey(identifier), l.config.LoginWindow)
	if err != nil {
		if l.config.FailOpen {
			return Decision{Allowed: true, Degraded: true}, nil
		}
		return Decision{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if count > int64(l.config.MaxLoginAttempts) {
		if remaining < time.Second {
			remaining = time.Second
		}
		return Decision{Attempts: count, RetryAfter: remaining}, ErrRateLimited
	}

	return Decision{Allowed: true, Attempts: count}, nil
}

// Reset deletes the counter for identifier.
func (l *Limiter) Reset(ctx context.Context, identifier string) error {
	if err := l.store.Del(ctx, loginKey(identifier)); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Attempts returns the current counter for identifier. Missing keys return
// zero and do not reveal account existence.
func (l *Limiter) Attempts(ctx context.Context, identifier string) (int64, error) {
	raw, err := l.store.Get(ctx, loginKey(identifier))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var count int64
	if _, err := fmt.Sscan(string(raw), &count); err != nil || count < 0 {
		return 0, nil
	}
	return count, nil
}

func loginKey(identifier string) string {
	return "al:" + identifier
}
