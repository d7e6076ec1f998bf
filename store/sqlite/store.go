// Package sqlite is a jobAuth.AccountStore on an embedded SQLite database,
// for single-node deployments and tests. Timestamps are stored as Unix
// nanoseconds and roles as a JSON array.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const accountColumns = `id, email, password_hash, auth_provider, enabled, activated, roles,
	activation_token_hash, activation_token_expiry, reset_token_hash, reset_token_expiry,
	first_name, last_name, phone, version, created_at, updated_at`

// Store implements jobAuth.AccountStore.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ jobAuth.AccountStore = (*Store)(nil)

// Open opens dbPath, applies pragmas and runs migrations. Use ":memory:" for
// a throwaway database.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// One writer; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) GetByID(ctx context.Context, id string) (*jobAuth.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*jobAuth.Account, error) {
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

func (s *Store) GetByActivationTokenHash(ctx context.Context, hash string) (*jobAuth.Account, error) {
	if hash == "" {
		return nil, jobAuth.ErrAccountNotFound
	}
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE activation_token_hash = ?`, hash)
}

func (s *Store) GetByResetTokenHash(ctx context.Context, hash string) (*jobAuth.Account, error) {
	if hash == "" {
		return nil, jobAuth.ErrAccountNotFound
	}
	return s.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token_hash = ?`, hash)
}

// Create inserts account in a transaction and runs commit before COMMIT.
func (s *Store) Create(ctx context.Context, account *jobAuth.Account, commit func(context.Context) error) error {
	rolesJSON, err := json.Marshal(rolesOrEmpty(account.Roles))
	if err != nil {
		return err
	}
	now := s.now().UTC()
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		account.ID, account.Email, account.PasswordHash, string(account.AuthProvider),
		account.Enabled, account.Activated, string(rolesJSON),
		account.ActivationTokenHash, nullUnix(account.ActivationTokenExpiry),
		account.ResetTokenHash, nullUnix(account.ResetTokenExpiry),
		account.FirstName, account.LastName, account.Phone,
		createdAt.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return mapWriteErr(err)
	}

	if commit != nil {
		if err := commit(ctx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return mapWriteErr(err)
	}

	account.Version = 1
	account.CreatedAt = createdAt
	account.UpdatedAt = now
	return nil
}

// Update writes account when the stored version still matches.
func (s *Store) Update(ctx context.Context, account *jobAuth.Account) error {
	rolesJSON, err := json.Marshal(rolesOrEmpty(account.Roles))
	if err != nil {
		return err
	}
	now := s.now().UTC()

	res, err := s.db.ExecContext(ctx, `UPDATE accounts SET email = ?, password_hash = ?, auth_provider = ?,
		enabled = ?, activated = ?, roles = ?, activation_token_hash = ?, activation_token_expiry = ?,
		reset_token_hash = ?, reset_token_expiry = ?, first_name = ?, last_name = ?, phone = ?,
		version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		account.Email, account.PasswordHash, string(account.AuthProvider),
		account.Enabled, account.Activated, string(rolesJSON),
		account.ActivationTokenHash, nullUnix(account.ActivationTokenExpiry),
		account.ResetTokenHash, nullUnix(account.ResetTokenExpiry),
		account.FirstName, account.LastName, account.Phone,
		now.UnixNano(), account.ID, account.Version,
	)
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missOrConflict(ctx, account.ID)
	}

	account.Version++
	account.UpdatedAt = now
	return nil
}

func (s *Store) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return jobAuth.ErrAccountNotFound
	}
	return jobAuth.ErrVersionConflict
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (*jobAuth.Account, error) {
	var (
		a                jobAuth.Account
		provider         string
		rolesJSON        string
		activationExpiry sql.NullInt64
		resetExpiry      sql.NullInt64
		createdAt        int64
		updatedAt        int64
	)
	err := s.db.QueryRowContext(ctx, q, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &provider, &a.Enabled, &a.Activated, &rolesJSON,
		&a.ActivationTokenHash, &activationExpiry, &a.ResetTokenHash, &resetExpiry,
		&a.FirstName, &a.LastName, &a.Phone, &a.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobAuth.ErrAccountNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(rolesJSON), &a.Roles); err != nil {
		return nil, fmt.Errorf("decode roles of account %s: %w", a.ID, err)
	}

	a.AuthProvider = jobAuth.AuthProvider(provider)
	a.ActivationTokenExpiry = fromNullUnix(activationExpiry)
	a.ResetTokenExpiry = fromNullUnix(resetExpiry)
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	a.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &a, nil
}

func mapWriteErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return jobAuth.ErrEmailAlreadyInUse
	}
	return err
}

func rolesOrEmpty(r []string) []string {
	if r == nil {
		return []string{}
	}
	return r
}

func nullUnix(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64).UTC()
}
