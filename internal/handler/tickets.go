package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

// TicketPurchaser sells entry tickets idempotently.
type TicketPurchaser interface {
	Purchase(ctx context.Context, eventID, user, key string) (model.Ticket, bool, error)
}

// TicketHandler serves POST /events/:event_id/tickets.
type TicketHandler struct {
	svc TicketPurchaser
}

// NewTicketHandler returns a TicketHandler backed by svc.
func NewTicketHandler(svc TicketPurchaser) *TicketHandler {
	return &TicketHandler{svc: svc}
}

// Purchase creates a ticket.  It answers 201 for a new ticket and 200
// when the idempotency key was already used by the same user.
func (h *TicketHandler) Purchase(c echo.Context) error {
	var body struct {
		User           string `json:"user"`
		IdempotencyKey string `json:"idempotency_key"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	key := body.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get("Idempotency-Key")
	}
	ticket, created, err := h.svc.Purchase(c.Request().Context(), c.Param("event_id"), requestUser(c, body.User), key)
	if err != nil {
		return fail(c, err, "event not found")
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, echo.Map{"ok": true, "ticket": ticket})
}
