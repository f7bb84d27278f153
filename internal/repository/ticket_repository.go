package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// TicketRepo stores event tickets.  Inserts are keyed by
// (event_id, idempotency_key) so a replayed purchase never creates a
// second row.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Create inserts a ticket.  It returns ErrConflict when the idempotency
// key was already used for the event.
func (r *TicketRepo) Create(ctx context.Context, t model.Ticket) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tickets (id, event_id, user, idempotency_key, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.EventID, t.User, t.IdempotencyKey, t.CreatedAt.UTC(),
	)
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// GetByIdempotencyKey returns the ticket created with key, or ErrNotFound.
func (r *TicketRepo) GetByIdempotencyKey(ctx context.Context, eventID, key string) (model.Ticket, error) {
	var t model.Ticket
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, user, idempotency_key, created_at FROM tickets WHERE event_id = ? AND idempotency_key = ?`,
		eventID, key,
	).Scan(&t.ID, &t.EventID, &t.User, &t.IdempotencyKey, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ticket{}, ErrNotFound
	}
	return t, err
}

// Count returns the number of tickets sold.
func (r *TicketRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
	return n, err
}
