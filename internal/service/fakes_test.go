package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/queue"
	"github.com/iliyamo/club-table-reservation/internal/repository"
)

type memStore struct {
	mu      sync.Mutex
	tables  map[string]model.Table
	ledger  []model.Reservation
	err     error
	delay   time.Duration
	lists   int
	onList  func()
	nextRec int
}

func newMemStore(eventID string, ids ...string) *memStore {
	s := &memStore{tables: map[string]model.Table{}}
	for i, id := range ids {
		s.tables[eventID+"/"+id] = model.Table{EventID: eventID, ID: id, Number: i + 1, Status: model.TableFree}
	}
	return s
}

func (s *memStore) wait(ctx context.Context) error {
	if s.delay == 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memStore) GetTable(ctx context.Context, eventID, tableID string) (model.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Table{}, s.err
	}
	t, ok := s.tables[eventID+"/"+tableID]
	if !ok {
		return model.Table{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *memStore) ListTables(ctx context.Context, eventID string) ([]model.Table, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	s.lists++
	out := []model.Table{}
	for _, t := range s.tables {
		if t.EventID == eventID {
			out = append(out, t)
		}
	}
	hook := s.onList
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *memStore) History(ctx context.Context, eventID, tableID string) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.ledger {
		if r.EventID == eventID && r.TableID == tableID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Reserve(ctx context.Context, eventID, tableID, user string, at time.Time) (model.Table, bool, error) {
	if err := s.wait(ctx); err != nil {
		return model.Table{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Table{}, false, s.err
	}
	key := eventID + "/" + tableID
	t, ok := s.tables[key]
	if !ok || t.Status != model.TableFree {
		return model.Table{}, false, nil
	}
	t.Status = model.TableReserved
	u := user
	t.ReservedBy = &u
	t.UpdatedAt = at
	s.tables[key] = t
	s.nextRec++
	s.ledger = append(s.ledger, model.Reservation{
		ID: fmt.Sprintf("r%d", s.nextRec), EventID: eventID, TableID: tableID,
		User: user, Status: model.ReservationBooked, CreatedAt: at,
	})
	return t, true, nil
}

func (s *memStore) Release(ctx context.Context, eventID, tableID string, at time.Time) (model.Table, bool, error) {
	if err := s.wait(ctx); err != nil {
		return model.Table{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return model.Table{}, false, s.err
	}
	key := eventID + "/" + tableID
	t, ok := s.tables[key]
	if !ok || t.Status != model.TableReserved {
		return model.Table{}, false, nil
	}
	t.Status = model.TableFree
	t.ReservedBy = nil
	t.UpdatedAt = at
	s.tables[key] = t
	for i := len(s.ledger) - 1; i >= 0; i-- {
		r := &s.ledger[i]
		if r.EventID == eventID && r.TableID == tableID && r.Status == model.ReservationBooked {
			r.Status = model.ReservationCanceled
			ts := at
			r.CanceledAt = &ts
			break
		}
	}
	return t, true, nil
}

// memCache is a non-fenced cache; failing makes every call error.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failing bool
	invals  []string
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

var errCacheDown = errors.New("cache down")

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return nil, false, errCacheDown
	}
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	c.data[key] = value
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errCacheDown
	}
	c.invals = append(c.invals, key)
	delete(c.data, key)
	return nil
}

type recordingBus struct {
	mu   sync.Mutex
	msgs []queue.TableUpdated
	err  error
}

func (b *recordingBus) Publish(ctx context.Context, msg queue.TableUpdated) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) sent() []queue.TableUpdated {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]queue.TableUpdated(nil), b.msgs...)
}
