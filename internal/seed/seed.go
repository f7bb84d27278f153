// Package seed generates demo clubs, events and tables.
package seed

import (
	"context"
	"fmt"
	"time"

	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// Plan sizes the generated data set.
type Plan struct {
	Clubs          int
	EventsPerClub  int
	TablesPerEvent int
	// Start is the date of the first event; later events follow weekly.
	Start          time.Time
}

// DefaultPlan is 8 clubs with 6 events each and 25 tables per event.
func DefaultPlan(now time.Time) Plan {
	return Plan{Clubs: 8, EventsPerClub: 6, TablesPerEvent: 25, Start: now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 7)}
}

var eventKinds = []string{
	"DJ Night", "Live Concert", "Party Night", "Electronic Beats",
	"Retro Party", "Foam Party", "VIP Dinner", "Summer Fest",
}

var cities = []string{"Zagreb", "Split", "Rijeka", "Osijek", "Zadar", "Pula", "Dubrovnik", "Varaždin"}

// Data is one generated data set.
type Data struct {
	Clubs  []model.Club
	Events []model.Event
	Tables []model.Table
}

// Generate builds a deterministic data set from p.  Ids follow the
// "club-N", "club-N-event-M", "club-N-event-M-table-K" scheme.
func Generate(p Plan) Data {
	var d Data
	for c := 1; c <= p.Clubs; c++ {
		club := model.Club{
			ID:          fmt.Sprintf("club-%d", c),
			Name:        fmt.Sprintf("Club %d", c),
			Location:    cities[(c-1)%len(cities)] + ", Hrvatska",
			Description: "Tables bookable per event.",
		}
		d.Clubs = append(d.Clubs, club)
		for e := 1; e <= p.EventsPerClub; e++ {
			ev := model.Event{
				ID:          fmt.Sprintf("%s-event-%d", club.ID, e),
				ClubID:      club.ID,
				Name:        eventKinds[(e-1)%len(eventKinds)],
				Date:        p.Start.AddDate(0, 0, 7*(e-1)),
				Description: fmt.Sprintf("%s at %s.", eventKinds[(e-1)%len(eventKinds)], club.Name),
			}
			d.Events = append(d.Events, ev)
			for t := 1; t <= p.TablesPerEvent; t++ {
				d.Tables = append(d.Tables, model.Table{
					EventID: ev.ID,
					ID:      fmt.Sprintf("%s-table-%d", ev.ID, t),
					Number:  t,
					Status:  model.TableFree,
				})
			}
		}
	}
	return d
}

// Writer persists generated rows.
type Writer interface {
	UpsertClub(ctx context.Context, c model.Club) error
	UpsertEvent(ctx context.Context, e model.Event) error
	CreateTables(ctx context.Context, tables []model.Table) error
}

// Apply writes d through w.  Existing tables keep their state.
func Apply(ctx context.Context, w Writer, d Data, logger pslog.Logger) error {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	for _, c := range d.Clubs {
		if err := w.UpsertClub(ctx, c); err != nil {
			return fmt.Errorf("seed club %s: %w", c.ID, err)
		}
	}
	for _, e := range d.Events {
		if err := w.UpsertEvent(ctx, e); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
	}
	byEvent := map[string][]model.Table{}
	for _, t := range d.Tables {
		byEvent[t.EventID] = append(byEvent[t.EventID], t)
	}
	for _, e := range d.Events {
		if err := w.CreateTables(ctx, byEvent[e.ID]); err != nil {
			return fmt.Errorf("seed tables for %s: %w", e.ID, err)
		}
	}
	logger.Info("seed.applied", "clubs", len(d.Clubs), "events", len(d.Events), "tables", len(d.Tables))
	return nil
}
