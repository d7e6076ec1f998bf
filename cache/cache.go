// Package cache defines the shared credential cache used by jobAuth flows.
//
// Every stateful flow (login counters, revocation entries, cooldowns, proofs,
// M2M credentials) goes through [Store]. Implementations must make Incr, SetNX
// and TakeAll atomic: the engine never serializes access itself.
//
// Three implementations ship with the package:
//   - [RedisStore]: go-redis client, the production backend.
//   - [MemoryStore]: process-local map with an injectable clock, for tests.
//   - [BoltStore]: bbolt file, for single-node development setups.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned when a key does not exist or has expired.
	ErrMiss = errors.New("cache: miss")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("cache: unavailable")
)

// Store is the minimal keyed store contract used by jobAuth.
type Store interface {
	// Incr increments key and sets ttl only when the key is created. It returns
	// the new count and the remaining lifetime of the window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Duration, error)
	// Set stores value with ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent. When the key already exists it
	// returns false and the remaining lifetime of the existing key.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error)
	// Get returns ErrMiss for absent keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// TTL returns the remaining lifetime of key or ErrMiss.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Del removes keys. Missing keys are not an error.
	Del(ctx context.Context, keys ...string) error
	// TakeAll returns and deletes every key atomically. If any key is missing
	// nothing is deleted and ErrMiss is returned.
	TakeAll(ctx context.Context, keys ...string) ([][]byte, error)
	// Ping checks backend reachability.
	Ping(ctx context.Context) error
}
