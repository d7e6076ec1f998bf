package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

var (
	ErrConsumedNotFound    = errors.New("consumed token not found")
	ErrConsumedUnavailable = errors.New("consumed token store unavailable")
)

// ConsumedTokens remembers which account a spent activation token belonged
// to until the token would have expired, so a replayed link resolves to the
// same account instead of looking unknown.
type ConsumedTokens struct {
	store  cache.Store
	prefix string
}

func NewConsumedTokens(store cache.Store, prefix string) *ConsumedTokens {
	if prefix == "" {
		prefix = "aac"
	}
	return &ConsumedTokens{
		store:  store,
		prefix: prefix,
	}
}

func (s *ConsumedTokens) key(tokenHash string) string {
	return s.prefix + ":" + tokenHash
}

// Mark records tokenHash as spent by accountID. ttl <= 0 writes nothing.
func (s *ConsumedTokens) Mark(ctx context.Context, tokenHash, accountID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.store.Set(ctx, s.key(tokenHash), []byte(accountID), ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrConsumedUnavailable, err)
	}
	return nil
}

// Lookup returns the account that spent tokenHash.
func (s *ConsumedTokens) Lookup(ctx context.Context, tokenHash string) (string, error) {
	raw, err := s.store.Get(ctx, s.key(tokenHash))
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return "", ErrConsumedNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrConsumedUnavailable, err)
	}
	return string(raw), nil
}
