// Package storetest is a conformance suite for jobAuth.AccountStore
// implementations.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) jobAuth.AccountStore

// Run executes every conformance test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("CommitHookRollsBack", func(t *testing.T) { testCommitHookRollsBack(t, newStore(t)) })
	t.Run("TokenLookups", func(t *testing.T) { testTokenLookups(t, newStore(t)) })
	t.Run("UpdateVersioning", func(t *testing.T) { testUpdateVersioning(t, newStore(t)) })
	t.Run("UpdateEmailUniqueness", func(t *testing.T) { testUpdateEmailUniqueness(t, newStore(t)) })
}

// Account returns a populated local account.
func Account(id, email string) *jobAuth.Account {
	return &jobAuth.Account{
		ID:           id,
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		AuthProvider: jobAuth.ProviderLocal,
		Roles:        []string{"applicant"},
		FirstName:    "Test",
		LastName:     "Applicant",
		Phone:        "+15550100",
	}
}

func testCreateAndGet(t *testing.T, s jobAuth.AccountStore) {
	ctx := context.Background()
	in := Account("a1", "alice@example.com")
	in.ActivationTokenHash = "act"
	in.ActivationTokenExpiry = time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	require.NoError(t, s.Create(ctx, in, nil))
	assert.Equal(t, int64(1), in.Version)

	got, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, jobAuth.ProviderLocal, got.AuthProvider)
	assert.Equal(t, []string{"applicant"}, got.Roles)
	assert.Equal(t, "+15550100", got.Phone)
	assert.True(t, in.ActivationTokenExpiry.Equal(got.ActivationTokenExpiry))
	assert.True(t, got.ResetTokenExpiry.IsZero())

	byEmail, err := s.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", byEmail.ID)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)
	_, err = s.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)
}

func testDuplicateEmail(t *testing.T, s jobAuth.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, Account("a1", "alice@example.com"), nil))
	err := s.Create(ctx, Account("a2", "alice@example.com"), nil)
	assert.ErrorIs(t, err, jobAuth.ErrEmailAlreadyInUse)
}

func testCommitHookRollsBack(t *testing.T, s jobAuth.AccountStore) {
	ctx := context.Background()
	boom := errors.New("mail failed")

	err := s.Create(ctx, Account("a1", "alice@example.com"), func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	_, err = s.GetByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)

	// The email stays available after a rollback.
	require.NoError(t, s.Create(ctx, Account("a1", "alice@example.com"), nil))
}

func testTokenLookups(t *testing.T, s jobAuth.AccountStore) {
	ctx := context.Background()
	a := Account("a1", "alice@example.com")
	a.ActivationTokenHash = "act-hash"
	require.NoError(t, s.Create(ctx, a, nil))
	require.NoError(t, s.Create(ctx, Account("a2", "bob@example.com"), nil))

	got, err := s.GetByActivationTokenHash(ctx, "act-hash")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = s.GetByActivationTokenHash(ctx, "")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)
	_, err = s.GetByResetTokenHash(ctx, "")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)

	got.ActivationTokenHash = ""
	got.ResetTokenHash = "rst-hash"
	got.ResetTokenExpiry = time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, s.Update(ctx, got))

	_, err = s.GetByActivationTokenHash(ctx, "act-hash")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)
	byReset, err := s.GetByResetTokenHash(ctx, "rst-hash")
	require.NoError(t, err)
	assert.Equal(t, "a1", byReset.ID)
}

func testUpdateVersioning(t *testing.T, s jobAuth.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, Account("a1", "alice@example.com"), nil))

	a, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	stale := a.Clone()

	a.Enabled = true
	a.Activated = true
	a.Roles = []string{"applicant", "recruiter"}
	require.NoError(t, s.Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	got, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.Enabled && got.Activated)
	assert.Equal(t, []string{"applicant", "recruiter"}, got.Roles)
	assert.Equal(t, int64(2), got.Version)

	stale.FirstName = "Stale"
	assert.ErrorIs(t, s.Update(ctx, stale), jobAuth.ErrVersionConflict)

	ghost := Account("ghost", "ghost@example.com")
	ghost.Version = 1
	assert.ErrorIs(t, s.Update(ctx, ghost), jobAuth.ErrAccountNotFound)
}

func testUpdateEmailUniqueness(t *testing.T, s jobAuth.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, Account("a1", "alice@example.com"), nil))
	require.NoError(t, s.Create(ctx, Account("a2", "bob@example.com"), nil))

	a, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	a.Email = "bob@example.com"
	assert.ErrorIs(t, s.Update(ctx, a), jobAuth.ErrEmailAlreadyInUse)

	a, err = s.GetByID(ctx, "a1")
	require.NoError(t, err)
	a.Email = "alice.new@example.com"
	require.NoError(t, s.Update(ctx, a))

	_, err = s.GetByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, jobAuth.ErrAccountNotFound)
	require.NoError(t, s.Create(ctx, Account("a3", "alice@example.com"), nil))
}
