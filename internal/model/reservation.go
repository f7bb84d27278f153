package model

import "time"

// ReservationStatus is the state of a ledger record.
type ReservationStatus string

const (
	ReservationBooked   ReservationStatus = "booked"
	ReservationCanceled ReservationStatus = "canceled"
)

// Reservation is an append-only ledger entry written on every successful
// reserve.  Records are never deleted; a cancel marks the most recent
// booked record for the table as canceled.
//
// Fields:
//  ID         – uuid primary key.
//  EventID    – event of the reserved table.
//  TableID    – reserved table.
//  User       – identity that made the reservation.
//  Status     – booked or canceled.
//  CreatedAt  – when the reservation was booked.
//  CanceledAt – when it was canceled, if ever.
type Reservation struct {
	ID         string            `json:"id"`                    // reservations.id
	EventID    string            `json:"event_id"`              // reservations.event_id
	TableID    string            `json:"table_id"`              // reservations.table_id
	User       string            `json:"user"`                  // reservations.user
	Status     ReservationStatus `json:"status"`                // reservations.status
	CreatedAt  time.Time         `json:"created_at"`            // reservations.created_at
	CanceledAt *time.Time        `json:"canceled_at,omitempty"` // reservations.canceled_at (nullable)
}
