package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// ReportRepo persists aggregate reports.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo constructs a ReportRepo.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// Insert stores a report.
func (r *ReportRepo) Insert(ctx context.Context, rep model.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (id, type, created_at, total_reservations, total_tickets_sold, revenue_estimate)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.Type, rep.CreatedAt.UTC(), rep.TotalReservations, rep.TotalTicketsSold, rep.RevenueEstimate,
	)
	return err
}
