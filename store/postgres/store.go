// Package postgres is a jobAuth.AccountStore on PostgreSQL.
//
// Queries run through a pgx connection pool. Schema migrations are embedded
// and applied with golang-migrate over a database/sql connection, see
// [Migrate].
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const accountColumns = `id, email, password_hash, auth_provider, enabled, activated, roles,
	activation_token_hash, activation_token_expiry, reset_token_hash, reset_token_expiry,
	first_name, last_name, phone, version, created_at, updated_at`

// Store implements jobAuth.AccountStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ jobAuth.AccountStore = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open creates a pool for databaseURL and checks connectivity.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(pool), nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) GetByID(ctx context.Context, id string) (*jobAuth.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*jobAuth.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

func (s *Store) GetByActivationTokenHash(ctx context.Context, hash string) (*jobAuth.Account, error) {
	if hash == "" {
		return nil, jobAuth.ErrAccountNotFound
	}
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE activation_token_hash = $1`, hash)
}

func (s *Store) GetByResetTokenHash(ctx context.Context, hash string) (*jobAuth.Account, error) {
	if hash == "" {
		return nil, jobAuth.ErrAccountNotFound
	}
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = $1`, hash)
}

// Create inserts account in a transaction and runs commit before COMMIT.
func (s *Store) Create(ctx context.Context, account *jobAuth.Account, commit func(context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `INSERT INTO accounts (id, email, password_hash, auth_provider, enabled, activated, roles,
		activation_token_hash, activation_token_expiry, reset_token_hash, reset_token_expiry,
		first_name, last_name, phone, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
		RETURNING version, created_at, updated_at`

	var version int64
	var createdAt, updatedAt time.Time
	err = tx.QueryRow(ctx, q,
		account.ID, account.Email, account.PasswordHash, string(account.AuthProvider),
		account.Enabled, account.Activated, roles(account.Roles),
		account.ActivationTokenHash, nullTime(account.ActivationTokenExpiry),
		account.ResetTokenHash, nullTime(account.ResetTokenExpiry),
		account.FirstName, account.LastName, account.Phone,
	).Scan(&version, &createdAt, &updatedAt)
	if err != nil {
		return mapWriteErr(err)
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapWriteErr(err)
	}

	account.Version = version
	account.CreatedAt = createdAt
	account.UpdatedAt = updatedAt
	return nil
}

// Update writes account when the stored version still matches.
func (s *Store) Update(ctx context.Context, account *jobAuth.Account) error {
	q := `UPDATE accounts SET email = $1, password_hash = $2, auth_provider = $3, enabled = $4,
		activated = $5, roles = $6, activation_token_hash = $7, activation_token_expiry = $8,
		reset_token_hash = $9, reset_token_expiry = $10, first_name = $11, last_name = $12,
		phone = $13, version = version + 1, updated_at = now()
		WHERE id = $14 AND version = $15
		RETURNING version, updated_at`

	var version int64
	var updatedAt time.Time
	err := s.pool.QueryRow(ctx, q,
		account.Email, account.PasswordHash, string(account.AuthProvider), account.Enabled,
		account.Activated, roles(account.Roles), account.ActivationTokenHash, nullTime(account.ActivationTokenExpiry),
		account.ResetTokenHash, nullTime(account.ResetTokenExpiry), account.FirstName, account.LastName,
		account.Phone, account.ID, account.Version,
	).Scan(&version, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.missOrConflict(ctx, account.ID)
		}
		return mapWriteErr(err)
	}

	account.Version = version
	account.UpdatedAt = updatedAt
	return nil
}

func (s *Store) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return jobAuth.ErrAccountNotFound
	}
	return jobAuth.ErrVersionConflict
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (*jobAuth.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, q, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, jobAuth.ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAccount(row pgx.Row) (*jobAuth.Account, error) {
	var (
		a                jobAuth.Account
		provider         string
		activationExpiry *time.Time
		resetExpiry      *time.Time
	)
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &provider, &a.Enabled, &a.Activated, &a.Roles,
		&a.ActivationTokenHash, &activationExpiry, &a.ResetTokenHash, &resetExpiry,
		&a.FirstName, &a.LastName, &a.Phone, &a.Version, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.AuthProvider = jobAuth.AuthProvider(provider)
	a.ActivationTokenExpiry = fromNullTime(activationExpiry)
	a.ResetTokenExpiry = fromNullTime(resetExpiry)
	return &a, nil
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return jobAuth.ErrEmailAlreadyInUse
	}
	return err
}

func roles(r []string) []string {
	if r == nil {
		return []string{}
	}
	return r
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func fromNullTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}
