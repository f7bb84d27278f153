package repository // repository for event table persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// TableRepo encapsulates database operations for event_tables.
type TableRepo struct {
	db *sql.DB
}

// NewTableRepo constructs a TableRepo given a DB handle.
func NewTableRepo(db *sql.DB) *TableRepo {
	return &TableRepo{db: db}
}

// DB exposes the handle so callers can open transactions spanning
// several repositories.
func (r *TableRepo) DB() *sql.DB { return r.db }

const tableColumns = `event_id, id, number, status, reserved_by, updated_at`

func scanTable(row interface{ Scan(...any) error }) (model.Table, error) {
	var (
		t          model.Table
		status     string
		reservedBy sql.NullString
	)
	if err := row.Scan(&t.EventID, &t.ID, &t.Number, &status, &reservedBy, &t.UpdatedAt); err != nil {
		return model.Table{}, err
	}
	t.Status = model.TableStatus(status)
	if reservedBy.Valid {
		user := reservedBy.String
		t.ReservedBy = &user
	}
	return t, nil
}

// GetByID performs a point lookup by (eventID, tableID).  It returns
// ErrNotFound when the table does not exist.
func (r *TableRepo) GetByID(ctx context.Context, eventID, tableID string) (*model.Table, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM event_tables WHERE event_id = ? AND id = ?`,
		eventID, tableID,
	)
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetByIDTx reads a table inside the caller's transaction, observing the
// transaction's own writes.
func (r *TableRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, eventID, tableID string) (*model.Table, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+tableColumns+` FROM event_tables WHERE event_id = ? AND id = ?`,
		eventID, tableID,
	)
	t, err := scanTable(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListByEvent returns every table of an event ordered by number.  An
// unknown event yields an empty slice.
func (r *TableRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Table, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tableColumns+` FROM event_tables WHERE event_id = ? ORDER BY number, id`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tables := []model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}

// ReserveIfFreeTx flips a table to reserved only when it is currently
// free.  The WHERE clause is the admission check; the returned bool
// reports whether exactly this statement changed the row.
func (r *TableRepo) ReserveIfFreeTx(ctx context.Context, tx *sql.Tx, eventID, tableID, user string, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE event_tables SET status = 'reserved', reserved_by = ?, updated_at = ?
		 WHERE event_id = ? AND id = ? AND status = 'free'`,
		user, at.UTC(), eventID, tableID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReleaseIfReservedTx flips a table back to free only when it is
// currently reserved.
func (r *TableRepo) ReleaseIfReservedTx(ctx context.Context, tx *sql.Tx, eventID, tableID string, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE event_tables SET status = 'free', reserved_by = NULL, updated_at = ?
		 WHERE event_id = ? AND id = ? AND status = 'reserved'`,
		at.UTC(), eventID, tableID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateBulk inserts multiple tables in one statement.  New tables start
// free regardless of the Status field; rows that already exist are left
// as they are.
func (r *TableRepo) CreateBulk(ctx context.Context, tables []model.Table) error {
	if len(tables) == 0 {
		return nil
	}
	query := `INSERT IGNORE INTO event_tables (event_id, id, number, status) VALUES `
	args := make([]interface{}, 0, len(tables)*3)
	for i, t := range tables {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, 'free')"
		args = append(args, t.EventID, t.ID, t.Number)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
