package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

var ErrRevocationUnavailable = errors.New("revocation store unavailable")

// RevocationStore is the token blacklist. Entries are keyed by token
// fingerprint and expire together with the token they shadow.
type RevocationStore struct {
	store  cache.Store
	prefix string
}

func NewRevocationStore(store cache.Store, prefix string) *RevocationStore {
	if prefix == "" {
		prefix = "arv"
	}
	return &RevocationStore{
		store:  store,
		prefix: prefix,
	}
}

func (s *RevocationStore) key(fingerprint string) string {
	return s.prefix + ":" + fingerprint
}

// Revoke records fingerprint for ttl. A non-positive ttl means the token has
// already expired on its own and nothing is written.
func (s *RevocationStore) Revoke(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.store.Set(ctx, s.key(fingerprint), []byte("1"), ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	return nil
}

func (s *RevocationStore) IsRevoked(ctx context.Context, fingerprint string) (bool, error) {
	_, err := s.store.Get(ctx, s.key(fingerprint))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
}
