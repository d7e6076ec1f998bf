package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

var (
	ErrCooldownActive     = errors.New("cooldown active")
	ErrLimiterUnavailable = errors.New("limiter store unavailable")
)

// Cooldown admits one action per key per period. The entry is claimed with
// SETNX so concurrent callers cannot both pass.
type Cooldown struct {
	store  cache.Store
	prefix string
	period time.Duration
}

func NewCooldown(store cache.Store, prefix string, period time.Duration) *Cooldown {
	return &Cooldown{
		store:  store,
		prefix: prefix,
		period: period,
	}
}

// Acquire claims the cooldown for key. When it is already held the remaining
// time is returned alongside ErrCooldownActive.
func (c *Cooldown) Acquire(ctx context.Context, key string) (time.Duration, error) {
	if c == nil {
		return 0, nil
	}
	ok, remaining, err := c.store.SetNX(ctx, c.prefix+key, []byte("1"), c.period)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if !ok {
		if remaining < time.Second {
			remaining = time.Second
		}
		return remaining, ErrCooldownActive
	}
	return 0, nil
}

// Release drops the cooldown, used when the guarded action failed before any
// side effect reached the user.
func (c *Cooldown) Release(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if err := c.store.Del(ctx, c.prefix+key); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

func (c *Cooldown) Period() time.Duration {
	return c.period
}
