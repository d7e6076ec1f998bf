package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

var ErrWindowExceeded = errors.New("attempt window exceeded")

// Window is a fixed-window counter with a configurable budget.
type Window struct {
	store       cache.Store
	prefix      string
	window      time.Duration
	maxAttempts int
}

func NewWindow(store cache.Store, prefix string, window time.Duration, maxAttempts int) *Window {
	return &Window{
		store:       store,
		prefix:      prefix,
		window:      window,
		maxAttempts: maxAttempts,
	}
}

// Hit records one attempt and reports ErrWindowExceeded with the remaining
// window once the budget is spent.
func (w *Window) Hit(ctx context.Context, key string) (time.Duration, error) {
	if w == nil {
		return 0, nil
	}
	count, remaining, err := w.store.Incr(ctx, w.prefix+key, w.window)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if count > int64(w.maxAttempts) {
		if remaining < time.Second {
			remaining = time.Second
		}
		return remaining, ErrWindowExceeded
	}
	return 0, nil
}

func (w *Window) Reset(ctx context.Context, key string) error {
	if w == nil {
		return nil
	}
	if err := w.store.Del(ctx, w.prefix+key); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}
