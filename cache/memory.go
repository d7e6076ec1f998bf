package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Stats are simple counters for diagnostics.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Sets    int64 `json:"sets"`
	Deletes int64 `json:"deletes"`
	Size    int   `json:"size"`
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a process-local [Store]. Expired entries are dropped lazily
// on access. Now may be replaced in tests to drive expiry deterministically.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	Now     func() time.Time

	hits    int64
	misses  int64
	sets    int64
	deletes int64
}

// NewMemoryStore returns an empty store using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (s *MemoryStore) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(key string, now time.Time) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !now.Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

// Incr implements [Store].
func (s *MemoryStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.lookup(key, now)
	var count int64
	if ok {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err == nil {
			count = n
		}
	} else {
		e.expiresAt = now.Add(ttl)
	}
	count++
	e.value = []byte(strconv.FormatInt(count, 10))
	s.entries[key] = e
	atomic.AddInt64(&s.sets, 1)
	return count, e.expiresAt.Sub(now), nil
}

// Set implements [Store].
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
	atomic.AddInt64(&s.sets, 1)
	return nil
}

// SetNX implements [Store].
func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.lookup(key, now); ok {
		if e.expiresAt.IsZero() {
			return false, 0, nil
		}
		return false, e.expiresAt.Sub(now), nil
	}
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.entries[key] = e
	atomic.AddInt64(&s.sets, 1)
	return true, ttl, nil
}

// Get implements [Store].
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key, s.now())
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		return nil, ErrMiss
	}
	atomic.AddInt64(&s.hits, 1)
	return append([]byte(nil), e.value...), nil
}

// TTL implements [Store].
func (s *MemoryStore) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.lookup(key, now)
	if !ok {
		return 0, ErrMiss
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(now), nil
}

// Del implements [Store].
func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		if _, ok := s.entries[k]; ok {
			delete(s.entries, k)
			atomic.AddInt64(&s.deletes, 1)
		}
	}
	return nil
}

// TakeAll implements [Store].
func (s *MemoryStore) TakeAll(_ context.Context, keys ...string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([][]byte, len(keys))
	for i, k := range keys {
		e, ok := s.lookup(k, now)
		if !ok {
			return nil, ErrMiss
		}
		out[i] = e.value
	}
	for _, k := range keys {
		delete(s.entries, k)
		atomic.AddInt64(&s.deletes, 1)
	}
	return out, nil
}

// Ping implements [Store].
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Len returns the number of stored entries, including expired ones not yet
// touched.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store counters.
func (s *MemoryStore) Stats() Stats {
	return Stats{
		Hits:    atomic.LoadInt64(&s.hits),
		Misses:  atomic.LoadInt64(&s.misses),
		Sets:    atomic.LoadInt64(&s.sets),
		Deletes: atomic.LoadInt64(&s.deletes),
		Size:    s.Len(),
	}
}
