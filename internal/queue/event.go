// Package queue defines the table update notification and the buses that
// fan it out to every running instance.
package queue

import "github.com/iliyamo/club-table-reservation/internal/model"

// MessageType names the transition a notification announces.
type MessageType string

const (
	TypeReserved MessageType = "RESERVED"
	TypeCanceled MessageType = "CANCELED"
)

// TableUpdated is published after a table transition commits.  It is
// advisory: consumers that miss it re-fetch the table list.
type TableUpdated struct {
	Type    MessageType       `json:"type"`
	EventID string            `json:"event_id"`
	TableID string            `json:"table_id"`
	Status  model.TableStatus `json:"status"`
}
