package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

// ClubLister lists clubs.
type ClubLister interface {
	List(ctx context.Context) ([]model.Club, error)
}

// EventLister lists the events of a club.
type EventLister interface {
	ListByClub(ctx context.Context, clubID string) ([]model.Event, error)
}

// CatalogHandler serves the read-only club and event browse routes.
type CatalogHandler struct {
	Clubs  ClubLister
	Events EventLister
}

// ListClubs handles GET /clubs.
func (h *CatalogHandler) ListClubs(c echo.Context) error {
	clubs, err := h.Clubs.List(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list clubs: %v", err)
		return fail(c, service.ErrStoreUnavailable, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "clubs": clubs})
}

// ListEvents handles GET /clubs/:club_id/events.  Unknown clubs yield an
// empty list.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
	clubID := c.Param("club_id")
	if clubID == "" {
		return badRequest(c, "club id is required")
	}
	events, err := h.Events.ListByClub(c.Request().Context(), clubID)
	if err != nil {
		c.Logger().Errorf("list events for club %s: %v", clubID, err)
		return fail(c, service.ErrStoreUnavailable, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true, "events": events})
}
