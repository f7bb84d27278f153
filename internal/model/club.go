package model

// Club is a venue hosting events.
type Club struct {
	ID          string `json:"id"`          // clubs.id
	Name        string `json:"name"`        // clubs.name
	Location    string `json:"location"`    // clubs.location
	Description string `json:"description"` // clubs.description
}
