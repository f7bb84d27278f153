package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-table-reservation/internal/model"
)

type stubCatalog struct {
	err error
}

func (s stubCatalog) List(context.Context) ([]model.Club, error) {
	return []model.Club{{ID: "c1", Name: "Blue Room"}}, s.err
}

func (s stubCatalog) ListByClub(_ context.Context, clubID string) ([]model.Event, error) {
	if clubID != "c1" {
		return []model.Event{}, s.err
	}
	return []model.Event{{ID: "e1", ClubID: "c1", Name: "Friday"}}, s.err
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCatalogRoutes(t *testing.T) {
	e := echo.New()
	h := &CatalogHandler{Clubs: stubCatalog{}, Events: stubCatalog{}}
	e.GET("/clubs", h.ListClubs)
	e.GET("/clubs/:club_id/events", h.ListEvents)

	rec := do(e, http.MethodGet, "/clubs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["clubs"], 1)

	rec = do(e, http.MethodGet, "/clubs/c1/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["events"], 1)

	rec = do(e, http.MethodGet, "/clubs/zz/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode(t, rec)["events"])
}

func TestCatalogStoreFailure(t *testing.T) {
	e := echo.New()
	h := &CatalogHandler{Clubs: stubCatalog{err: errors.New("down")}, Events: stubCatalog{}}
	e.GET("/clubs", h.ListClubs)

	rec := do(e, http.MethodGet, "/clubs", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ReasonStoreUnavailable, decode(t, rec)["reason"])
}

func TestHealth(t *testing.T) {
	e := echo.New()
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	e.GET("/ok", (&Health{Required: map[string]Check{"db": up}, Optional: map[string]Check{"redis": down}}).Handle)
	e.GET("/bad", (&Health{Required: map[string]Check{"db": down}}).Handle)

	rec := do(e, http.MethodGet, "/ok", "")
	require.Equal(t, http.StatusOK, rec.Code)
	checks := decode(t, rec)["checks"].(map[string]any)
	assert.Equal(t, "degraded", checks["redis"])

	rec = do(e, http.MethodGet, "/bad", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
