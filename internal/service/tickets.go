package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/iliyamo/club-table-reservation/internal/clock"
	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/repository"
)

// TicketStore persists tickets.  Create returns repository.ErrConflict
// when (event, idempotency key) already exists.
type TicketStore interface {
	Create(ctx context.Context, t model.Ticket) error
	GetByIdempotencyKey(ctx context.Context, eventID, key string) (model.Ticket, error)
}

// EventChecker reports whether an event exists.
type EventChecker interface {
	Exists(ctx context.Context, eventID string) (bool, error)
}

// TicketService sells entry tickets.  It does not touch table state.
type TicketService struct {
	tickets TicketStore
	events  EventChecker
	clock   clock.Clock
	logger  pslog.Logger
	timeout time.Duration
}

// NewTicketService wires a TicketService.
func NewTicketService(tickets TicketStore, events EventChecker, clk clock.Clock, logger pslog.Logger) *TicketService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &TicketService{tickets: tickets, events: events, clock: clk, logger: logger, timeout: defaultStoreTimeout}
}

// Purchase creates a ticket, or returns the existing one when the key was
// already used by the same user.  created is false on replay.
func (s *TicketService) Purchase(ctx context.Context, eventID, user, key string) (ticket model.Ticket, created bool, err error) {
	user = strings.TrimSpace(user)
	key = strings.TrimSpace(key)
	if eventID == "" || user == "" || key == "" {
		return model.Ticket{}, false, ErrInvalidRequest
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return model.Ticket{}, false, s.storeErr(err)
	}
	if !ok {
		return model.Ticket{}, false, ErrNotFound
	}

	t := model.Ticket{
		ID:             uuid.NewString(),
		EventID:        eventID,
		User:           user,
		IdempotencyKey: key,
		CreatedAt:      s.clock.Now(),
	}
	err = s.tickets.Create(ctx, t)
	if err == nil {
		s.logger.Info("ticket.purchased", "event_id", eventID, "user", user, "ticket_id", t.ID)
		return t, true, nil
	}
	if !errors.Is(err, repository.ErrConflict) {
		return model.Ticket{}, false, s.storeErr(err)
	}

	prev, err := s.tickets.GetByIdempotencyKey(ctx, eventID, key)
	if err != nil {
		return model.Ticket{}, false, s.storeErr(err)
	}
	if prev.User != user {
		return model.Ticket{}, false, ErrIdempotencyConflict
	}
	return prev, false, nil
}

func (s *TicketService) storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.Warn("ticket.store.timeout", "error", err)
		return fmt.Errorf("ticket: %w", ErrOutcomeUnknown)
	}
	s.logger.Error("ticket.store.failed", "error", err)
	return fmt.Errorf("ticket: %w", ErrStoreUnavailable)
}
