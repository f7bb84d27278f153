package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// EventRepo is a thin read/write wrapper over the events table.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// ListByClub returns the events of a club ordered by date.
func (r *EventRepo) ListByClub(ctx context.Context, clubID string) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, club_id, name, date, description FROM events WHERE club_id = ? ORDER BY date, id`,
		clubID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.ClubID, &e.Name, &e.Date, &e.Description); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Exists reports whether an event with the given id exists.
func (r *EventRepo) Exists(ctx context.Context, eventID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = ?)`, eventID).Scan(&ok)
	return ok, err
}

// Upsert inserts an event or refreshes its fields.
func (r *EventRepo) Upsert(ctx context.Context, e model.Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, club_id, name, date, description) VALUES (?, ?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = VALUES(name), date = VALUES(date), description = VALUES(description)`,
		e.ID, e.ClubID, e.Name, e.Date.UTC().Format("2006-01-02"), e.Description,
	)
	return err
}
