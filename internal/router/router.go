package router // package router registers every HTTP route of the table API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/handler"
)

// Deps carries the handlers and middleware the routes are built from.
// Nil handlers leave their routes unregistered.
type Deps struct {
	Health  *handler.Health
	Tables  *handler.TableHandler
	Catalog *handler.CatalogHandler
	Tickets *handler.TicketHandler

	// WS upgrades GET /ws to a push session.
	WS echo.HandlerFunc
	// Metrics serves GET /metrics.
	Metrics http.Handler

	// Identity runs on every write route; RateLimit guards reserve and
	// cancel.
	Identity  echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes maps the API onto e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	if d.Health != nil {
		e.GET("/healthz", d.Health.Handle)
	}
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}
	if d.WS != nil {
		e.GET("/ws", d.WS)
	}

	var writes []echo.MiddlewareFunc
	if d.Identity != nil {
		writes = append(writes, d.Identity)
	}
	guarded := writes
	if d.RateLimit != nil {
		guarded = append(append([]echo.MiddlewareFunc{}, writes...), d.RateLimit)
	}

	if d.Catalog != nil {
		e.GET("/clubs", d.Catalog.ListClubs)
		e.GET("/clubs/:club_id/events", d.Catalog.ListEvents)
	}

	ev := e.Group("/events/:event_id")
	if d.Tables != nil {
		ev.GET("/tables", d.Tables.List)
		ev.GET("/tables/:table_id/history", d.Tables.History)
		ev.POST("/tables/:table_id/reserve", d.Tables.Reserve, guarded...)
		ev.POST("/tables/:table_id/cancel", d.Tables.Cancel, guarded...)
	}
	if d.Tickets != nil {
		ev.POST("/tickets", d.Tickets.Purchase, writes...)
	}
}
