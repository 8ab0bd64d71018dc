package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Store is the persistence boundary for the roster.
type Store interface {
	Create(ctx context.Context, draft Draft) (*Member, error)
	GetByID(ctx context.Context, id int64) (*Member, error)
	List(ctx context.Context, filter Filter) ([]*Member, error)
	Update(ctx context.Context, id int64, draft Draft) (*Member, error)

	// Deactivate soft-deletes a member. Rows stay so attendance history
	// keeps its references.
	Deactivate(ctx context.Context, id int64) error
}

// PostgresStore implements Store over the members table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const memberColumns = `id, document_id, first_name, last_name, phone, email, address,
	membership_date, status, created_at, updated_at`

func scanMember(row interface{ Scan(...interface{}) error }) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.DocumentID, &m.FirstName, &m.LastName, &m.Phone,
		&m.Email, &m.Address, &m.MembershipDate, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning member: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) Create(ctx context.Context, draft Draft) (*Member, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO members (document_id, first_name, last_name, phone, email, address, membership_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+memberColumns,
		draft.DocumentID, draft.FirstName, draft.LastName, draft.Phone,
		draft.Email, draft.Address, draft.MembershipDate, draft.Status)
	m, err := scanMember(row)
	if err != nil {
		return nil, translateError(err, "creating member")
	}
	return m, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*Member, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	return scanMember(row)
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE 1=1`
	args := []interface{}{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR document_id ILIKE $%d)", n, n, n)
	}
	query += " ORDER BY last_name, first_name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var list []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, draft Draft) (*Member, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE members
		 SET document_id = $2, first_name = $3, last_name = $4, phone = $5,
		     email = $6, address = $7, membership_date = $8, status = $9,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+memberColumns,
		id, draft.DocumentID, draft.FirstName, draft.LastName, draft.Phone,
		draft.Email, draft.Address, draft.MembershipDate, draft.Status)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, translateError(err, "updating member")
	}
	return m, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET status = 'inactive', updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deactivating member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivating member: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func translateError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return fmt.Errorf("%s: %w", action, err)
}
