package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CredentialStore is the persistence boundary for accounts. The login and
// verification paths depend on this interface so tests can substitute an
// in-memory implementation.
type CredentialStore interface {
	// FindByUsername returns the full account record, or
	// ErrAccountNotFound when no account carries the username.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByID returns the full account record by primary key.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// Create inserts the account and fills ID and timestamps. The
	// password hash must already be set. Unique violations on username
	// or email return ErrDuplicateKey.
	Create(ctx context.Context, account *Account) error

	// RecordFailedAttempt atomically increments the failure counter in
	// a single statement and, when the new count reaches threshold,
	// locks the account for lockFor. It returns the new counter value
	// and the lockout expiry when the lock engaged. Inactive accounts
	// keep their status: a lock expires, inactive never does, so the
	// lock transition must not overwrite it.
	RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, *time.Time, error)

	// RecordSuccessfulLogin resets the failure counter, clears any
	// lockout, restores active status and stamps last_access.
	RecordSuccessfulLogin(ctx context.Context, id int64) error

	// List returns all accounts ordered by username.
	List(ctx context.Context) ([]*Account, error)

	// Update applies the non-nil fields of changes to the account.
	Update(ctx context.Context, id int64, changes AccountUpdate) (*Account, error)

	// SetPassword replaces the stored password hash.
	SetPassword(ctx context.Context, id int64, passwordHash string) error

	// Unlock clears the lockout and failure counter without requiring
	// a successful login.
	Unlock(ctx context.Context, id int64) error

	// Deactivate soft-disables the account. Accounts are never removed;
	// history keeps pointing at them and a deactivated account fails
	// verification on the next request.
	Deactivate(ctx context.Context, id int64) error
}

// PostgresStore implements CredentialStore over a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const accountColumns = `id, username, email, full_name, password_hash, role, status,
	failed_attempts, locked_until, last_access, created_at, updated_at`

func scanAccount(row interface{ Scan(...interface{}) error }) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.PasswordHash,
		&a.Role, &a.Status, &a.FailedAttempts, &a.LockedUntil, &a.LastAccess,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return &a, nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (s *PostgresStore) Create(ctx context.Context, account *Account) error {
	if account.Status == "" {
		account.Status = StatusActive
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO accounts (username, email, full_name, password_hash, role, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		account.Username, account.Email, account.FullName,
		account.PasswordHash, account.Role, account.Status,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return translatePQError(err, "creating account")
	}
	return nil
}

func (s *PostgresStore) RecordFailedAttempt(ctx context.Context, id int64, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	var (
		count       int
		lockedUntil *time.Time
	)
	// Single statement so concurrent failures never lose increments. The
	// status guard keeps inactive terminal: without it, enough wrong
	// passwords would relabel the account 'locked' and the lock's expiry
	// would reopen a door an administrator closed.
	err := s.db.QueryRowContext(ctx,
		`UPDATE accounts
		 SET failed_attempts = failed_attempts + 1,
		     locked_until = CASE WHEN failed_attempts + 1 >= $2 AND status <> 'inactive'
		                         THEN NOW() + make_interval(secs => $3)
		                         ELSE locked_until END,
		     status = CASE WHEN failed_attempts + 1 >= $2 AND status <> 'inactive'
		                   THEN 'locked' ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING failed_attempts, locked_until`,
		id, threshold, lockFor.Seconds(),
	).Scan(&count, &lockedUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil, ErrAccountNotFound
		}
		return 0, nil, fmt.Errorf("recording failed attempt: %w", err)
	}
	if count < threshold {
		lockedUntil = nil
	}
	return count, lockedUntil, nil
}

func (s *PostgresStore) RecordSuccessfulLogin(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts
		 SET failed_attempts = 0,
		     locked_until = NULL,
		     status = 'active',
		     last_access = NOW(),
		     updated_at = NOW()
		 WHERE id = $1 AND status <> 'inactive'`, id)
	if err != nil {
		return fmt.Errorf("recording successful login: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, changes AccountUpdate) (*Account, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE accounts
		 SET email = COALESCE($2, email),
		     full_name = COALESCE($3, full_name),
		     role = COALESCE($4, role),
		     status = COALESCE($5, status),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+accountColumns,
		id, changes.Email, changes.FullName,
		roleArg(changes.Role), statusArg(changes.Status))
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, err
		}
		return nil, translatePQError(err, "updating account")
	}
	return a, nil
}

func (s *PostgresStore) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, passwordHash)
	if err != nil {
		return fmt.Errorf("setting password: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Unlock(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts
		 SET failed_attempts = 0,
		     locked_until = NULL,
		     status = CASE WHEN status = 'locked' THEN 'active' ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("unlocking account: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET status = 'inactive', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating account: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// translatePQError maps unique-constraint violations to ErrDuplicateKey.
func translatePQError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateKey
	}
	return fmt.Errorf("%s: %w", action, err)
}

// roleArg and statusArg convert optional enum pointers to driver values
// so COALESCE sees NULL for unchanged fields.
func roleArg(r *Role) interface{} {
	if r == nil {
		return nil
	}
	return string(*r)
}

func statusArg(s *Status) interface{} {
	if s == nil {
		return nil
	}
	return string(*s)
}
