// Package audit records login attempts for operational review and prunes
// them on a retention schedule.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Entry is one recorded login attempt. AccountID is nil when the username
// did not resolve to an account.
type Entry struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	AccountID     *int64    `json:"accountId,omitempty"`
	IPAddress     string    `json:"ipAddress"`
	UserAgent     string    `json:"userAgent"`
	Success       bool      `json:"success"`
	FailureReason *string   `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Filter narrows List queries. Zero values mean no constraint.
type Filter struct {
	Username string
	Since    time.Time
	Limit    int
}

const defaultListLimit = 100

// Recorder persists and queries login attempts.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PostgresRecorder implements Recorder over the login_audit table.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder wraps an open database handle.
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO login_audit (username, account_id, ip_address, user_agent, success, failure_reason)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Username, entry.AccountID, entry.IPAddress, entry.UserAgent,
		entry.Success, entry.FailureReason)
	if err != nil {
		return fmt.Errorf("recording login attempt: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, username, account_id, ip_address, user_agent, success, failure_reason, created_at
		 FROM login_audit WHERE 1=1`
	args := []interface{}{}
	if filter.Username != "" {
		args = append(args, filter.Username)
		query += fmt.Sprintf(" AND username = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing login attempts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Username, &e.AccountID, &e.IPAddress,
			&e.UserAgent, &e.Success, &e.FailureReason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning login attempt: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing login attempts: %w", err)
	}
	return entries, nil
}

func (r *PostgresRecorder) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM login_audit WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning login audit: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning login audit: %w", err)
	}
	return n, nil
}
