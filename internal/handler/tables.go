package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

// TableService is the coordinator surface the table routes need.
type TableService interface {
	Reserve(ctx context.Context, eventID, tableID, user string) (service.Result, error)
	Cancel(ctx context.Context, eventID, tableID string) (service.Result, error)
	ListTables(ctx context.Context, eventID string) ([]model.Table, bool, error)
	History(ctx context.Context, eventID, tableID string) ([]model.Reservation, error)
}

// TableHandler serves the per-event table routes.
type TableHandler struct {
	svc TableService
}

// NewTableHandler returns a TableHandler backed by svc.
func NewTableHandler(svc TableService) *TableHandler {
	if svc == nil {
		panic("nil service passed to NewTableHandler")
	}
	return &TableHandler{svc: svc}
}

type conflictBody struct {
	Failure
	CurrentStatus model.TableStatus `json:"current_status"`
}

// List handles GET /events/:event_id/tables.  X-Cache reports whether the
// list came from the cache.
func (h *TableHandler) List(c echo.Context) error {
	tables, hit, err := h.svc.ListTables(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return fail(c, err, "invalid event id")
	}
	if hit {
		c.Response().Header().Set("X-Cache", "HIT")
	} else {
		c.Response().Header().Set("X-Cache", "MISS")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "tables": tables})
}

// Reserve handles POST /events/:event_id/tables/:table_id/reserve with a
// JSON body {"user": "..."}.
func (h *TableHandler) Reserve(c echo.Context) error {
	var body struct {
		User string `json:"user"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	user := requestUser(c, body.User)
	if user == "" {
		return badRequest(c, "user is required")
	}
	res, err := h.svc.Reserve(c.Request().Context(), c.Param("event_id"), c.Param("table_id"), user)
	if err != nil {
		return h.transitionFailure(c, res, err, "table already reserved")
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel handles POST /events/:event_id/tables/:table_id/cancel.
func (h *TableHandler) Cancel(c echo.Context) error {
	res, err := h.svc.Cancel(c.Request().Context(), c.Param("event_id"), c.Param("table_id"))
	if err != nil {
		return h.transitionFailure(c, res, err, "table already free")
	}
	return c.JSON(http.StatusOK, res)
}

func (h *TableHandler) transitionFailure(c echo.Context, res service.Result, err error, conflictMsg string) error {
	if errors.Is(err, service.ErrConflict) {
		return c.JSON(http.StatusConflict, conflictBody{
			Failure:       Failure{Reason: ReasonConflict, Message: conflictMsg},
			CurrentStatus: res.PreviousStatus,
		})
	}
	return fail(c, err, "table not found")
}

// History handles GET /events/:event_id/tables/:table_id/history.
func (h *TableHandler) History(c echo.Context) error {
	recs, err := h.svc.History(c.Request().Context(), c.Param("event_id"), c.Param("table_id"))
	if err != nil {
		return fail(c, err, "table not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "reservations": recs})
}
