// Package memstore is a process-local jobAuth.AccountStore. It backs tests,
// the load test command and single-node development.
package memstore

import (
	"context"
	"sync"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
)

// Store keeps accounts in maps indexed by id and email. All methods are safe
// for concurrent use and hand out copies.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*jobAuth.Account
	byEmail map[string]string
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*jobAuth.Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// Len reports the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) GetByID(_ context.Context, id string) (*jobAuth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, jobAuth.ErrAccountNotFound
	}
	return a.Clone(), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*jobAuth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, jobAuth.ErrAccountNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) GetByActivationTokenHash(_ context.Context, hash string) (*jobAuth.Account, error) {
	return s.scan(func(a *jobAuth.Account) bool { return a.ActivationTokenHash == hash }, hash)
}

func (s *Store) GetByResetTokenHash(_ context.Context, hash string) (*jobAuth.Account, error) {
	return s.scan(func(a *jobAuth.Account) bool { return a.ResetTokenHash == hash }, hash)
}

func (s *Store) scan(match func(*jobAuth.Account) bool, hash string) (*jobAuth.Account, error) {
	if hash == "" {
		return nil, jobAuth.ErrAccountNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.byID {
		if match(a) {
			return a.Clone(), nil
		}
	}
	return nil, jobAuth.ErrAccountNotFound
}

// Create inserts account. The write lock is held while commit runs, so no
// other writer observes the row before commit decides its fate.
func (s *Store) Create(ctx context.Context, account *jobAuth.Account, commit func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[account.Email]; exists {
		return jobAuth.ErrEmailAlreadyInUse
	}
	if _, exists := s.byID[account.ID]; exists {
		return jobAuth.ErrEmailAlreadyInUse
	}
	if commit != nil {
		if err := commit(ctx); err != nil {
			return err
		}
	}

	now := s.now().UTC()
	stored := account.Clone()
	stored.Version = 1
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	account.Version = stored.Version
	account.CreatedAt = stored.CreatedAt
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

// Update replaces the stored row when account.Version matches it.
func (s *Store) Update(_ context.Context, account *jobAuth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[account.ID]
	if !ok {
		return jobAuth.ErrAccountNotFound
	}
	if current.Version != account.Version {
		return jobAuth.ErrVersionConflict
	}
	if owner, taken := s.byEmail[account.Email]; taken && owner != account.ID {
		return jobAuth.ErrEmailAlreadyInUse
	}

	stored := account.Clone()
	stored.Version = current.Version + 1
	stored.CreatedAt = current.CreatedAt
	stored.UpdatedAt = s.now().UTC()

	if current.Email != stored.Email {
		delete(s.byEmail, current.Email)
	}
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored.ID
	account.Version = stored.Version
	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

var _ jobAuth.AccountStore = (*Store)(nil)
