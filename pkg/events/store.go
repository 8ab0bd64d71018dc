package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Store is the persistence boundary for events.
type Store interface {
	Create(ctx context.Context, draft Draft, createdBy int64) (*Event, error)
	GetByID(ctx context.Context, id int64) (*Event, error)
	List(ctx context.Context, filter Filter) ([]*Event, error)
	Update(ctx context.Context, id int64, draft Draft) (*Event, error)
	Delete(ctx context.Context, id int64) error
}

// PostgresStore implements Store over the events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, name, description, event_date, location, created_by, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.EventDate, &e.Location,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	return &e, nil
}

func (s *PostgresStore) Create(ctx context.Context, draft Draft, createdBy int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO events (name, description, event_date, location, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+eventColumns,
		draft.Name, draft.Description, draft.EventDate, draft.Location, createdBy)
	return scanEvent(row)
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	return scanEvent(row)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []interface{}{}
	if filter.UpcomingOnly {
		query += " AND event_date >= NOW()"
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND event_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND event_date <= $%d", len(args))
	}
	query += " ORDER BY event_date"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var list []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, draft Draft) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE events
		 SET name = $2, description = $3, event_date = $4, location = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+eventColumns,
		id, draft.Name, draft.Description, draft.EventDate, draft.Location)
	return scanEvent(row)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting event: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
