package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCache = []byte("cache")

// BoltStore persists cache entries in a bbolt file. Each value is prefixed
// with its expiry as unix nanoseconds (0 = no expiry). bbolt serializes
// writers, so every read-modify-write runs in one Update transaction.
type BoltStore struct {
	db  *bbolt.DB
	Now func() time.Time
}

// OpenBoltStore opens (or creates) the bbolt file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCache)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache bucket: %w", err)
	}
	return &BoltStore{db: db, Now: time.Now}, nil
}

// Close closes the underlying file.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func encodeBolt(value []byte, expiresAt time.Time) []byte {
	buf := make([]byte, 8+len(value))
	if !expiresAt.IsZero() {
		binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt.UnixNano()))
	}
	copy(buf[8:], value)
	return buf
}

// decodeBolt returns ok=false for malformed or expired records.
func decodeBolt(raw []byte, now time.Time) (value []byte, expiresAt time.Time, ok bool) {
	if len(raw) < 8 {
		return nil, time.Time{}, false
	}
	if ns := binary.BigEndian.Uint64(raw[:8]); ns != 0 {
		expiresAt = time.Unix(0, int64(ns))
		if !now.Before(expiresAt) {
			return nil, time.Time{}, false
		}
	}
	return append([]byte(nil), raw[8:]...), expiresAt, true
}

func boltTTL(expiresAt, now time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	return expiresAt.Sub(now)
}

// Incr implements [Store].
func (s *BoltStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	var (
		count     int64
		remaining time.Duration
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCache)
		now := s.now()
		value, expiresAt, ok := decodeBolt(b.Get([]byte(key)), now)
		if ok {
			count, _ = strconv.ParseInt(string(value), 10, 64)
		} else {
			expiresAt = now.Add(ttl)
		}
		count++
		remaining = boltTTL(expiresAt, now)
		return b.Put([]byte(key), encodeBolt([]byte(strconv.FormatInt(count, 10)), expiresAt))
	})
	if err != nil {
		return 0, 0, unavailable(err)
	}
	return count, remaining, nil
}

// Set implements [Store].
func (s *BoltStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), encodeBolt(value, expiresAt))
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// SetNX implements [Store].
func (s *BoltStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error) {
	var (
		stored    bool
		remaining time.Duration
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCache)
		now := s.now()
		if _, expiresAt, ok := decodeBolt(b.Get([]byte(key)), now); ok {
			remaining = boltTTL(expiresAt, now)
			return nil
		}
		var expiresAt time.Time
		if ttl > 0 {
			expiresAt = now.Add(ttl)
		}
		stored = true
		remaining = ttl
		return b.Put([]byte(key), encodeBolt(value, expiresAt))
	})
	if err != nil {
		return false, 0, unavailable(err)
	}
	return stored, remaining, nil
}

// Get implements [Store].
func (s *BoltStore) Get(_ context.Context, key string) ([]byte, error) {
	var (
		value []byte
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		value, _, found = decodeBolt(tx.Bucket(bucketCache).Get([]byte(key)), s.now())
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if !found {
		return nil, ErrMiss
	}
	return value, nil
}

// TTL implements [Store].
func (s *BoltStore) TTL(_ context.Context, key string) (time.Duration, error) {
	var (
		remaining time.Duration
		found     bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		now := s.now()
		var expiresAt time.Time
		_, expiresAt, found = decodeBolt(tx.Bucket(bucketCache).Get([]byte(key)), now)
		remaining = boltTTL(expiresAt, now)
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	if !found {
		return 0, ErrMiss
	}
	return remaining, nil
}

// Del implements [Store].
func (s *BoltStore) Del(_ context.Context, keys ...string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCache)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}
	return nil
}

// TakeAll implements [Store].
func (s *BoltStore) TakeAll(_ context.Context, keys ...string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	missing := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCache)
		now := s.now()
		for i, k := range keys {
			value, _, ok := decodeBolt(b.Get([]byte(k)), now)
			if !ok {
				missing = true
				return nil
			}
			out[i] = value
		}
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	if missing {
		return nil, ErrMiss
	}
	return out, nil
}

// Ping implements [Store].
func (s *BoltStore) Ping(context.Context) error {
	if err := s.db.View(func(*bbolt.Tx) error { return nil }); err != nil {
		return unavailable(err)
	}
	return nil
}
