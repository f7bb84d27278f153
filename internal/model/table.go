package model

import "time"

// TableStatus is the reservation state of a table.
type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableReserved TableStatus = "reserved"
)

// Table is a reservable seat group at an event.  It is uniquely
// identified by the (EventID, ID) pair and only changes state through a
// conditional update.
//
// Fields:
//  EventID    – event the table belongs to.
//  ID         – table identifier, unique within the event.
//  Number     – display number shown to guests.
//  Status     – free or reserved.
//  ReservedBy – identity holding the reservation; nil when free.
//  UpdatedAt  – last state change.
type Table struct {
	EventID    string      `json:"event_id"`              // event_tables.event_id
	ID         string      `json:"table_id"`              // event_tables.id
	Number     int         `json:"number"`                // event_tables.number
	Status     TableStatus `json:"status"`                // event_tables.status
	ReservedBy *string     `json:"reserved_by"`           // event_tables.reserved_by (nullable)
	UpdatedAt  time.Time   `json:"updated_at,omitempty"`  // event_tables.updated_at
}
