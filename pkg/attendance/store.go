package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Store is the persistence boundary for attendance.
type Store interface {
	// Mark upserts one member's attendance at an event. Recording the
	// same pair again overwrites the previous mark.
	Mark(ctx context.Context, eventID int64, mark Mark, recordedBy int64) (*Record, error)

	// ListByEvent returns the event's roster with member names.
	ListByEvent(ctx context.Context, eventID int64) ([]*EventRecord, error)

	// Summarize aggregates present and absent counts for an event.
	Summarize(ctx context.Context, eventID int64) (*Summary, error)

	// Unmark removes a member's record from an event.
	Unmark(ctx context.Context, eventID, memberID int64) error
}

// PostgresStore implements Store over the attendance table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Mark(ctx context.Context, eventID int64, mark Mark, recordedBy int64) (*Record, error) {
	var r Record
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO attendance (event_id, member_id, present, notes, recorded_by)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id, member_id) DO UPDATE
		 SET present = EXCLUDED.present,
		     notes = EXCLUDED.notes,
		     recorded_by = EXCLUDED.recorded_by,
		     recorded_at = NOW()
		 RETURNING id, event_id, member_id, present, notes, recorded_by, recorded_at`,
		eventID, mark.MemberID, mark.Present, mark.Notes, recordedBy,
	).Scan(&r.ID, &r.EventID, &r.MemberID, &r.Present, &r.Notes, &r.RecordedBy, &r.RecordedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23503: the event or member reference is gone.
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return nil, ErrBadReference
		}
		return nil, fmt.Errorf("marking attendance: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID int64) ([]*EventRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.event_id, a.member_id, a.present, a.notes, a.recorded_by, a.recorded_at,
		        m.first_name, m.last_name
		 FROM attendance a
		 JOIN members m ON m.id = a.member_id
		 WHERE a.event_id = $1
		 ORDER BY m.last_name, m.first_name`, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer rows.Close()

	var list []*EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.ID, &r.EventID, &r.MemberID, &r.Present, &r.Notes,
			&r.RecordedBy, &r.RecordedAt, &r.MemberFirstName, &r.MemberLastName); err != nil {
			return nil, fmt.Errorf("scanning attendance: %w", err)
		}
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) Summarize(ctx context.Context, eventID int64) (*Summary, error) {
	summary := Summary{EventID: eventID}
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE present), COUNT(*) FILTER (WHERE NOT present)
		 FROM attendance WHERE event_id = $1`, eventID,
	).Scan(&summary.Present, &summary.Absent)
	if err != nil {
		return nil, fmt.Errorf("summarizing attendance: %w", err)
	}
	return &summary, nil
}

func (s *PostgresStore) Unmark(ctx context.Context, eventID, memberID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM attendance WHERE event_id = $1 AND member_id = $2`, eventID, memberID)
	if err != nil {
		return fmt.Errorf("unmarking attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unmarking attendance: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
