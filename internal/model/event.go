package model

import "time"

// Event is a dated occurrence at a club.  Tables are created per event.
type Event struct {
	ID          string    `json:"id"`          // events.id
	ClubID      string    `json:"club_id"`     // events.club_id
	Name        string    `json:"name"`        // events.name
	Date        time.Time `json:"date"`        // events.date
	Description string    `json:"description"` // events.description
}
