package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// ClubRepo is a thin read/write wrapper over the clubs table.
type ClubRepo struct {
	db *sql.DB
}

// NewClubRepo constructs a ClubRepo.
func NewClubRepo(db *sql.DB) *ClubRepo { return &ClubRepo{db: db} }

// List returns all clubs ordered by id.
func (r *ClubRepo) List(ctx context.Context) ([]model.Club, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, location, description FROM clubs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	clubs := []model.Club{}
	for rows.Next() {
		var c model.Club
		if err := rows.Scan(&c.ID, &c.Name, &c.Location, &c.Description); err != nil {
			return nil, err
		}
		clubs = append(clubs, c)
	}
	return clubs, rows.Err()
}

// Upsert inserts a club or refreshes its descriptive fields.
func (r *ClubRepo) Upsert(ctx context.Context, c model.Club) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clubs (id, name, location, description) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE name = VALUES(name), location = VALUES(location), description = VALUES(description)`,
		c.ID, c.Name, c.Location, c.Description,
	)
	return err
}
