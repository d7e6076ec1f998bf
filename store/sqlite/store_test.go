package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/MrEthical07/jobAuth/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) jobAuth.AccountStore { return openMemory(t) })
}

func TestReopenKeepsDataAndSkipsAppliedMigrations(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "accounts.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, storetest.Account("a1", "alice@example.com"), nil))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.NoError(t, s.Ping(ctx))
}

func TestEmptyRolesRoundTrip(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()

	a := storetest.Account("a1", "alice@example.com")
	a.Roles = nil
	require.NoError(t, s.Create(ctx, a, nil))

	got, err := s.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Empty(t, got.Roles)
}
