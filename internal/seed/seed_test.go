package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

func TestGenerateDefaultPlan(t *testing.T) {
	now := time.Date(2025, 5, 3, 15, 4, 5, 0, time.UTC)
	d := Generate(DefaultPlan(now))

	assert.Len(t, d.Clubs, 8)
	assert.Len(t, d.Events, 48)
	assert.Len(t, d.Tables, 48*25)

	first := d.Tables[0]
	assert.Equal(t, "club-1-event-1", first.EventID)
	assert.Equal(t, "club-1-event-1-table-1", first.ID)
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, model.TableFree, first.Status)

	assert.Equal(t, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), d.Events[0].Date)
	assert.Equal(t, d.Events[0].Date.AddDate(0, 0, 7), d.Events[1].Date)
}

type recorder struct {
	clubs, events, batches int
	failEvent              bool
}

func (r *recorder) UpsertClub(context.Context, model.Club) error { r.clubs++; return nil }

func (r *recorder) UpsertEvent(context.Context, model.Event) error {
	if r.failEvent {
		return errors.New("boom")
	}
	r.events++
	return nil
}

func (r *recorder) CreateTables(_ context.Context, tables []model.Table) error {
	r.batches++
	return nil
}

func TestApply(t *testing.T) {
	d := Generate(Plan{Clubs: 2, EventsPerClub: 3, TablesPerEvent: 4, Start: time.Now()})
	rec := &recorder{}
	require.NoError(t, Apply(context.Background(), rec, d, nil))
	assert.Equal(t, 2, rec.clubs)
	assert.Equal(t, 6, rec.events)
	assert.Equal(t, 6, rec.batches)

	err := Apply(context.Background(), &recorder{failEvent: true}, d, nil)
	assert.ErrorContains(t, err, "seed event club-1-event-1")
}
