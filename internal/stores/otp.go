package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

var (
	ErrOTPNotFound    = errors.New("otp challenge not found")
	ErrOTPMismatch    = errors.New("otp mismatch")
	ErrOTPUnavailable = errors.New("otp store unavailable")
)

// OTPStore holds at most one pending email OTP challenge per account.
type OTPStore struct {
	store  cache.Store
	prefix string
}

func NewOTPStore(store cache.Store, prefix string) *OTPStore {
	if prefix == "" {
		prefix = "aot"
	}
	return &OTPStore{
		store:  store,
		prefix: prefix,
	}
}

func (s *OTPStore) key(accountID string) string {
	return s.prefix + ":" + accountID
}

func (s *OTPStore) Save(ctx context.Context, record *ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key(record.AccountID), encoded, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	return nil
}

// Consume checks codeHash against the pending challenge and deletes it on a
// match. A mismatch leaves the challenge in place; attempt budgeting is the
// caller's job.
func (s *OTPStore) Consume(ctx context.Context, accountID, codeHash string) (*ChallengeRecord, error) {
	key := s.key(accountID)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, mapOTPErr(err)
	}
	record, err := decodeChallengeRecord(data)
	if err != nil {
		return nil, ErrOTPNotFound
	}
	if !hashEqual(record.SecretHash, codeHash) {
		return nil, ErrOTPMismatch
	}

	values, err := s.store.TakeAll(ctx, key)
	if err != nil {
		return nil, mapOTPErr(err)
	}
	taken, err := decodeChallengeRecord(values[0])
	if err != nil || !hashEqual(taken.SecretHash, codeHash) {
		return nil, ErrOTPMismatch
	}
	return taken, nil
}

func (s *OTPStore) Delete(ctx context.Context, accountID string) error {
	if err := s.store.Del(ctx, s.key(accountID)); err != nil {
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
	return nil
}

func mapOTPErr(err error) error {
	if errors.Is(err, cache.ErrMiss) {
		return ErrOTPNotFound
	}
	return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
}
