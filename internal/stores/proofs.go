package stores

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/jobAuth/cache"
)

// ProofKind names the two halves of an email change.
type ProofKind string

const (
	ProofOldEmail ProofKind = "old"
	ProofNewEmail ProofKind = "new"
	// ProofOTPEmail is issued after a one-time code sent to the new address
	// was verified.
	ProofOTPEmail ProofKind = "otp"
)

var (
	ErrProofNotFound    = errors.New("ownership proof not found")
	ErrProofMismatch    = errors.New("ownership proof mismatch")
	ErrProofUnavailable = errors.New("ownership proof store unavailable")
)

// ProofStore keeps the short-lived, single-use email ownership proofs. A new
// proof of the same kind replaces the previous one for the account.
type ProofStore struct {
	store  cache.Store
	prefix string
}

func NewProofStore(store cache.Store, prefix string) *ProofStore {
	if prefix == "" {
		prefix = "aep"
	}
	return &ProofStore{
		store:  store,
		prefix: prefix,
	}
}

func (s *ProofStore) key(kind ProofKind, accountID string) string {
	return s.prefix + ":" + string(kind) + ":" + accountID
}

func (s *ProofStore) Save(ctx context.Context, kind ProofKind, record *ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, s.key(kind, record.AccountID), encoded, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrProofUnavailable, err)
	}
	return nil
}

// RedeemPair consumes the old-email and new-email proofs together. Both
// hashes are checked before anything is deleted; the delete itself is
// all-or-nothing so two concurrent redemptions cannot both succeed.
func (s *ProofStore) RedeemPair(ctx context.Context, accountID, oldHash, newHash string) (oldRecord, newRecord *ChallengeRecord, err error) {
	oldKey := s.key(ProofOldEmail, accountID)
	newKey := s.key(ProofNewEmail, accountID)

	for _, probe := range []struct {
		key  string
		hash string
	}{{oldKey, oldHash}, {newKey, newHash}} {
		data, err := s.store.Get(ctx, probe.key)
		if err != nil {
			return nil, nil, mapProofErr(err)
		}
		record, err := decodeChallengeRecord(data)
		if err != nil {
			return nil, nil, ErrProofMismatch
		}
		if !hashEqual(record.SecretHash, probe.hash) {
			return nil, nil, ErrProofMismatch
		}
	}

	values, err := s.store.TakeAll(ctx, oldKey, newKey)
	if err != nil {
		return nil, nil, mapProofErr(err)
	}
	oldRecord, err = decodeChallengeRecord(values[0])
	if err != nil {
		return nil, nil, ErrProofMismatch
	}
	newRecord, err = decodeChallengeRecord(values[1])
	if err != nil {
		return nil, nil, ErrProofMismatch
	}
	// A proof re-issued between the probe and the take carries a new hash.
	if !hashEqual(oldRecord.SecretHash, oldHash) || !hashEqual(newRecord.SecretHash, newHash) {
		return nil, nil, ErrProofMismatch
	}
	return oldRecord, newRecord, nil
}

// Redeem consumes a single proof of kind after checking its hash.
func (s *ProofStore) Redeem(ctx context.Context, kind ProofKind, accountID, hash string) (*ChallengeRecord, error) {
	key := s.key(kind, accountID)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, mapProofErr(err)
	}
	record, err := decodeChallengeRecord(data)
	if err != nil || !hashEqual(record.SecretHash, hash) {
		return nil, ErrProofMismatch
	}

	values, err := s.store.TakeAll(ctx, key)
	if err != nil {
		return nil, mapProofErr(err)
	}
	taken, err := decodeChallengeRecord(values[0])
	if err != nil || !hashEqual(taken.SecretHash, hash) {
		return nil, ErrProofMismatch
	}
	return taken, nil
}

func mapProofErr(err error) error {
	if errors.Is(err, cache.ErrMiss) {
		return ErrProofNotFound
	}
	return fmt.Errorf("%w: %v", ErrProofUnavailable, err)
}

func hashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
