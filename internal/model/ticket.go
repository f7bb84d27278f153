package model

import "time"

// Ticket is an entry ticket for an event.  Purchases are idempotent on
// (EventID, IdempotencyKey).
type Ticket struct {
	ID             string    `json:"id"`              // tickets.id
	EventID        string    `json:"event_id"`        // tickets.event_id
	User           string    `json:"user"`            // tickets.user
	IdempotencyKey string    `json:"idempotency_key"` // tickets.idempotency_key
	CreatedAt      time.Time `json:"created_at"`      // tickets.created_at
}
