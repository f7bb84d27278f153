// Package service holds the reservation coordinator and the smaller
// services built around the store: ticket purchase and the report job.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/cache"
	"github.com/iliyamo/club-table-reservation/internal/clock"
	"github.com/iliyamo/club-table-reservation/internal/config"
	"github.com/iliyamo/club-table-reservation/internal/metrics"
	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/queue"
	"github.com/iliyamo/club-table-reservation/internal/repository"
)

// ReservationStore is the authoritative table store.  Reserve and Release
// are conditional: they report false when the precondition on the
// current status did not hold, and write nothing in that case.
type ReservationStore interface {
	GetTable(ctx context.Context, eventID, tableID string) (model.Table, error)
	ListTables(ctx context.Context, eventID string) ([]model.Table, error)
	History(ctx context.Context, eventID, tableID string) ([]model.Reservation, error)
	Reserve(ctx context.Context, eventID, tableID, user string, at time.Time) (model.Table, bool, error)
	Release(ctx context.Context, eventID, tableID string, at time.Time) (model.Table, bool, error)
}

// Result describes the outcome of a transition.  Degraded is set when
// the write committed but cache invalidation or publishing failed.
type Result struct {
	OK             bool              `json:"ok"`
	Table          model.Table       `json:"table"`
	PreviousStatus model.TableStatus `json:"previous_status"`
	Degraded       bool              `json:"degraded"`
}

// Coordinator runs the reserve/cancel state machine: conditional store
// write first, then cache invalidation, then notification.
type Coordinator struct {
	store   ReservationStore
	cache   cache.Cache
	bus     queue.Publisher
	clock   clock.Clock
	logger  pslog.Logger
	metrics *metrics.Metrics

	storeTimeout time.Duration
	cacheTimeout time.Duration
	cacheTTL     time.Duration
}

const (
	defaultStoreTimeout = 3 * time.Second
	defaultCacheTimeout = 500 * time.Millisecond
)

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source for ledger timestamps.
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l pslog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithStoreTimeout bounds each store round trip.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.storeTimeout = d
		}
	}
}

// WithCacheTimeout bounds each cache round trip.
func WithCacheTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.cacheTimeout = d
		}
	}
}

// WithCacheTTL sets the lifetime of populated table lists.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.cacheTTL = d
		}
	}
}

// NewCoordinator wires the coordinator.  tableCache and bus may be nil, in
// which case reads always hit the store and no notifications are sent.
func NewCoordinator(store ReservationStore, tableCache cache.Cache, bus queue.Publisher, opts ...Option) *Coordinator {
	if store == nil {
		panic("nil store passed to NewCoordinator")
	}
	c := &Coordinator{
		store:        store,
		cache:        tableCache,
		bus:          bus,
		clock:        clock.NewSystem(),
		logger:       pslog.NoopLogger(),
		storeTimeout: defaultStoreTimeout,
		cacheTimeout: defaultCacheTimeout,
		cacheTTL:     config.DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reserve marks a free table as reserved by user.  The conditional update
// is the only admission check; a losing caller gets ErrConflict together
// with the status it lost against.
func (c *Coordinator) Reserve(ctx context.Context, eventID, tableID, user string) (Result, error) {
	user = strings.TrimSpace(user)
	if eventID == "" || tableID == "" || user == "" {
		return Result{}, ErrInvalidRequest
	}
	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	tbl, applied, err := c.store.Reserve(sctx, eventID, tableID, user, c.clock.Now())
	cancel()
	if err != nil {
		return c.fail("reserve", eventID, tableID, err)
	}
	if !applied {
		return c.rejected(ctx, "reserve", eventID, tableID)
	}
	degraded := c.propagate(ctx, queue.TableUpdated{
		Type:    queue.TypeReserved,
		EventID: eventID,
		TableID: tableID,
		Status:  model.TableReserved,
	})
	c.record("reserve", "ok", degraded)
	c.logger.Info("table.reserved", "event_id", eventID, "table_id", tableID, "user", user, "degraded", degraded)
	return Result{OK: true, Table: tbl, PreviousStatus: model.TableFree, Degraded: degraded}, nil
}

// Cancel frees a reserved table and supersedes its latest booking.
func (c *Coordinator) Cancel(ctx context.Context, eventID, tableID string) (Result, error) {
	if eventID == "" || tableID == "" {
		return Result{}, ErrInvalidRequest
	}
	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	tbl, applied, err := c.store.Release(sctx, eventID, tableID, c.clock.Now())
	cancel()
	if err != nil {
		return c.fail("cancel", eventID, tableID, err)
	}
	if !applied {
		return c.rejected(ctx, "cancel", eventID, tableID)
	}
	degraded := c.propagate(ctx, queue.TableUpdated{
		Type:    queue.TypeCanceled,
		EventID: eventID,
		TableID: tableID,
		Status:  model.TableFree,
	})
	c.record("cancel", "ok", degraded)
	c.logger.Info("table.canceled", "event_id", eventID, "table_id", tableID, "degraded", degraded)
	return Result{OK: true, Table: tbl, PreviousStatus: model.TableReserved, Degraded: degraded}, nil
}

// rejected classifies a zero-row conditional update.  The lookup only
// labels the outcome; it never re-attempts the write.
func (c *Coordinator) rejected(ctx context.Context, op, eventID, tableID string) (Result, error) {
	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	tbl, err := c.store.GetTable(sctx, eventID, tableID)
	if errors.Is(err, repository.ErrNotFound) {
		c.metrics.Transition(op, "not_found")
		return Result{}, ErrNotFound
	}
	if err != nil {
		return c.fail(op, eventID, tableID, err)
	}
	c.metrics.Transition(op, "conflict")
	return Result{Table: tbl, PreviousStatus: tbl.Status}, ErrConflict
}

func (c *Coordinator) fail(op, eventID, tableID string, err error) (Result, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.metrics.Transition(op, "outcome_unknown")
		c.logger.Warn("store.timeout", "op", op, "event_id", eventID, "table_id", tableID, "error", err)
		return Result{}, fmt.Errorf("%s %s/%s: %w", op, eventID, tableID, ErrOutcomeUnknown)
	}
	c.metrics.Transition(op, "store_unavailable")
	c.logger.Error("store.failed", "op", op, "event_id", eventID, "table_id", tableID, "error", err)
	return Result{}, fmt.Errorf("%s %s/%s: %w", op, eventID, tableID, ErrStoreUnavailable)
}

func (c *Coordinator) record(op, outcome string, degraded bool) {
	if degraded {
		outcome = "degraded"
	}
	c.metrics.Transition(op, outcome)
}

// propagate invalidates the event's table list and then publishes msg.
// Both run detached from the caller's cancellation: once the write has
// committed they should happen even if the client went away.  Failures
// are logged and reported as degraded; nothing is rolled back.
func (c *Coordinator) propagate(ctx context.Context, msg queue.TableUpdated) bool {
	base := context.WithoutCancel(ctx)
	degraded := false
	if c.cache != nil {
		cctx, cancel := context.WithTimeout(base, c.cacheTimeout)
		err := c.cache.Invalidate(cctx, cache.TablesKey(msg.EventID))
		cancel()
		if err != nil {
			degraded = true
			c.metrics.SideEffectFailed("invalidate")
			c.logger.Warn("cache.invalidate.failed", "event_id", msg.EventID, "error", err)
		}
	}
	if c.bus != nil {
		pctx, cancel := context.WithTimeout(base, c.cacheTimeout)
		err := c.bus.Publish(pctx, msg)
		cancel()
		if err != nil {
			degraded = true
			c.metrics.SideEffectFailed("publish")
			c.logger.Warn("bus.publish.failed", "event_id", msg.EventID, "table_id", msg.TableID, "type", string(msg.Type), "error", err)
		}
	}
	return degraded
}

// ListTables returns an event's tables through the read-through cache.
// The bool reports a cache hit.  Cache errors degrade to a store read.
func (c *Coordinator) ListTables(ctx context.Context, eventID string) ([]model.Table, bool, error) {
	if eventID == "" {
		return nil, false, ErrInvalidRequest
	}
	key := cache.TablesKey(eventID)
	if c.cache != nil {
		if tables, ok := c.cached(ctx, key); ok {
			return tables, true, nil
		}
	}

	fc, fenced := c.cache.(cache.FencedCache)
	var fence uint64
	populate := c.cache != nil
	if fenced {
		cctx, cancel := context.WithTimeout(ctx, c.cacheTimeout)
		f, err := fc.Fence(cctx, key)
		cancel()
		if err != nil {
			populate = false
		}
		fence = f
	}

	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	tables, err := c.store.ListTables(sctx, eventID)
	cancel()
	if err != nil {
		_, err = c.fail("list", eventID, "*", err)
		return nil, false, err
	}

	if populate {
		c.fill(ctx, fc, fenced, key, fence, tables)
	}
	return tables, false, nil
}

func (c *Coordinator) cached(ctx context.Context, key string) ([]model.Table, bool) {
	cctx, cancel := context.WithTimeout(ctx, c.cacheTimeout)
	defer cancel()
	bs, hit, err := c.cache.Get(cctx, key)
	switch {
	case err != nil:
		c.metrics.CacheLookup("error")
		c.logger.Warn("cache.get.failed", "key", key, "error", err)
		return nil, false
	case !hit:
		c.metrics.CacheLookup("miss")
		return nil, false
	}
	var tables []model.Table
	if err := json.Unmarshal(bs, &tables); err != nil {
		c.metrics.CacheLookup("error")
		c.logger.Warn("cache.decode.failed", "key", key, "error", err)
		_ = c.cache.Invalidate(cctx, key)
		return nil, false
	}
	c.metrics.CacheLookup("hit")
	return tables, true
}

func (c *Coordinator) fill(ctx context.Context, fc cache.FencedCache, fenced bool, key string, fence uint64, tables []model.Table) {
	bs, err := json.Marshal(tables)
	if err != nil {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cacheTimeout)
	defer cancel()
	if fenced {
		stored, err := fc.Fill(cctx, key, fence, bs, c.cacheTTL)
		if err != nil {
			c.logger.Warn("cache.fill.failed", "key", key, "error", err)
		} else if !stored {
			c.logger.Debug("cache.fill.skipped", "key", key, "reason", "invalidated during read")
		}
		return
	}
	if err := c.cache.Put(cctx, key, bs, c.cacheTTL); err != nil {
		c.logger.Warn("cache.put.failed", "key", key, "error", err)
	}
}

// History returns the ledger of one table, oldest first.
func (c *Coordinator) History(ctx context.Context, eventID, tableID string) ([]model.Reservation, error) {
	if eventID == "" || tableID == "" {
		return nil, ErrInvalidRequest
	}
	sctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()
	if _, err := c.store.GetTable(sctx, eventID, tableID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		_, err = c.fail("history", eventID, tableID, err)
		return nil, err
	}
	recs, err := c.store.History(sctx, eventID, tableID)
	if err != nil {
		_, err = c.fail("history", eventID, tableID, err)
		return nil, err
	}
	return recs, nil
}
