package model

import "time"

// ReportTypeDailyStats labels the aggregate written by the report job.
const ReportTypeDailyStats = "DAILY_STATS"

// Report is a point-in-time aggregate over the ledger and ticket tables.
type Report struct {
	ID                string    `json:"id"`                 // reports.id
	Type              string    `json:"type"`               // reports.type
	CreatedAt         time.Time `json:"date"`               // reports.created_at
	TotalReservations int64     `json:"total_reservations"` // reports.total_reservations
	TotalTicketsSold  int64     `json:"total_tickets_sold"` // reports.total_tickets_sold
	RevenueEstimate   int64     `json:"revenue_estimate"`   // reports.revenue_estimate
}
