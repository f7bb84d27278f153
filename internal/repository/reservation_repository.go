package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// ReservationRepo provides access to the append-only reservations
// ledger.  Rows are inserted on reserve and flipped to canceled on
// cancel; nothing is ever deleted.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the provided database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// AppendTx inserts a ledger record inside the caller's transaction.  The
// caller must populate ID, CreatedAt and Status.
func (r *ReservationRepo) AppendTx(ctx context.Context, tx *sql.Tx, rec model.Reservation) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (id, event_id, table_id, user, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventID, rec.TableID, rec.User, string(rec.Status), rec.CreatedAt.UTC(),
	)
	return err
}

// CancelLatestBookedTx marks the most recent booked record of a table as
// canceled.  It reports false when no booked record exists, which happens
// for tables reserved by seed data without a ledger entry.
func (r *ReservationRepo) CancelLatestBookedTx(ctx context.Context, tx *sql.Tx, eventID, tableID string, at time.Time) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = 'canceled', canceled_at = ?
		 WHERE event_id = ? AND table_id = ? AND status = 'booked'
		 ORDER BY created_at DESC LIMIT 1`,
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

// ListByTable returns the ledger history of one table, oldest first.
func (r *ReservationRepo) ListByTable(ctx context.Context, eventID, tableID string) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, table_id, user, status, created_at, canceled_at
		 FROM reservations WHERE event_id = ? AND table_id = ?
		 ORDER BY created_at, id`,
		eventID, tableID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		var (
			rec        model.Reservation
			status     string
			canceledAt sql.NullTime
		)
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.TableID, &rec.User, &status, &rec.CreatedAt, &canceledAt); err != nil {
			return nil, err
		}
		rec.Status = model.ReservationStatus(status)
		if canceledAt.Valid {
			t := canceledAt.Time
			rec.CanceledAt = &t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of ledger records ever written.
func (r *ReservationRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations`).Scan(&n)
	return n, err
}
