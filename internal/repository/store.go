package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// ReservationStore is the authoritative store used by the reservation
// coordinator.  Each transition runs the conditional table update and
// the matching ledger write in one transaction, so a table never changes
// state without its ledger entry and vice versa.
type ReservationStore struct {
	db     *sql.DB
	tables *TableRepo
	ledger *ReservationRepo
	newID  func() string
}

// NewReservationStore composes the table and ledger repositories over db.
func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{
		db:     db,
		tables: NewTableRepo(db),
		ledger: NewReservationRepo(db),
		newID:  func() string { return uuid.NewString() },
	}
}

// GetTable performs a point lookup.
func (s *ReservationStore) GetTable(ctx context.Context, eventID, tableID string) (model.Table, error) {
	t, err := s.tables.GetByID(ctx, eventID, tableID)
	if err != nil {
		return model.Table{}, err
	}
	return *t, nil
}

// ListTables returns all tables of an event.
func (s *ReservationStore) ListTables(ctx context.Context, eventID string) ([]model.Table, error) {
	return s.tables.ListByEvent(ctx, eventID)
}

// History returns the ledger of one table.
func (s *ReservationStore) History(ctx context.Context, eventID, tableID string) ([]model.Reservation, error) {
	return s.ledger.ListByTable(ctx, eventID, tableID)
}

// Reserve applies the free -> reserved transition and appends a booked
// ledger record.  It returns false without error when the table was not
// free (or does not exist); nothing is written in that case.  On success
// the table is returned as read back inside the transaction.
func (s *ReservationStore) Reserve(ctx context.Context, eventID, tableID, user string, at time.Time) (model.Table, bool, error) {
	var updated model.Table
	err := s.withTx(ctx, func(tx *sql.Tx) (bool, error) {
		ok, err := s.tables.ReserveIfFreeTx(ctx, tx, eventID, tableID, user, at)
		if err != nil || !ok {
			return false, err
		}
		rec := model.Reservation{
			ID:        s.newID(),
			EventID:   eventID,
			TableID:   tableID,
			User:      user,
			Status:    model.ReservationBooked,
			CreatedAt: at,
		}
		if err := s.ledger.AppendTx(ctx, tx, rec); err != nil {
			return false, err
		}
		t, err := s.tables.GetByIDTx(ctx, tx, eventID, tableID)
		if err != nil {
			return false, err
		}
		updated = *t
		return true, nil
	})
	if err != nil {
		return model.Table{}, false, err
	}
	return updated, updated.ID != "", nil
}

// Release applies the reserved -> free transition and supersedes the
// latest booked ledger record.
func (s *ReservationStore) Release(ctx context.Context, eventID, tableID string, at time.Time) (model.Table, bool, error) {
	var updated model.Table
	err := s.withTx(ctx, func(tx *sql.Tx) (bool, error) {
		ok, err := s.tables.ReleaseIfReservedTx(ctx, tx, eventID, tableID, at)
		if err != nil || !ok {
			return false, err
		}
		if _, err := s.ledger.CancelLatestBookedTx(ctx, tx, eventID, tableID, at); err != nil {
			return false, err
		}
		t, err := s.tables.GetByIDTx(ctx, tx, eventID, tableID)
		if err != nil {
			return false, err
		}
		updated = *t
		return true, nil
	})
	if err != nil {
		return model.Table{}, false, err
	}
	return updated, updated.ID != "", nil
}

// withTx runs fn in a transaction and commits only when fn reports that
// it wrote something.
func (s *ReservationStore) withTx(ctx context.Context, fn func(tx *sql.Tx) (bool, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	wrote, err := fn(tx)
	if err != nil || !wrote {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
