package handler // HTTP handlers for the table, catalog and ticket endpoints

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/club-table-reservation/internal/service"
)

// Failure reasons returned in the "reason" field of error bodies.
const (
	ReasonInvalidRequest   = "invalid_request"
	ReasonNotFound         = "not_found"
	ReasonConflict         = "conflict"
	ReasonStoreUnavailable = "store_unavailable"
	ReasonOutcomeUnknown   = "outcome_unknown"
	ReasonRateLimited      = "rate_limited"
	ReasonUnauthorized     = "unauthorized"
	ReasonInternal         = "internal"
)

// Failure is the body of every non-2xx response.
type Failure struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// fail writes the structured body for a service error.  Errors outside
// the service sentinels are reported as internal without their text.
func fail(c echo.Context, err error, message string) error {
	status, reason := http.StatusInternalServerError, ReasonInternal
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		status, reason = http.StatusBadRequest, ReasonInvalidRequest
	case errors.Is(err, service.ErrNotFound):
		status, reason = http.StatusNotFound, ReasonNotFound
	case errors.Is(err, service.ErrConflict), errors.Is(err, service.ErrIdempotencyConflict):
		status, reason = http.StatusConflict, ReasonConflict
	case errors.Is(err, service.ErrOutcomeUnknown):
		status, reason = http.StatusServiceUnavailable, ReasonOutcomeUnknown
		message = "request timed out; re-read the table before retrying"
	case errors.Is(err, service.ErrStoreUnavailable):
		status, reason = http.StatusInternalServerError, ReasonStoreUnavailable
		message = "store unavailable"
	default:
		message = "internal error"
	}
	return c.JSON(status, Failure{Reason: reason, Message: message})
}

// badRequest writes a 400 with the given message.
func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, Failure{Reason: ReasonInvalidRequest, Message: message})
}

// requestUser resolves the acting user.  A verified token subject placed
// in the context by the identity middleware wins over the body value.
func requestUser(c echo.Context, fromBody string) string {
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v
	}
	return strings.TrimSpace(fromBody)
}
