package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/club-table-reservation/internal/model"
	"github.com/iliyamo/club-table-reservation/internal/service"
)

type stubTables struct {
	result  service.Result
	err     error
	tables  []model.Table
	hit     bool
	gotUser string
}

func (s *stubTables) Reserve(_ context.Context, eventID, tableID, user string) (service.Result, error) {
	s.gotUser = user
	return s.result, s.err
}

func (s *stubTables) Cancel(context.Context, string, string) (service.Result, error) {
	return s.result, s.err
}

func (s *stubTables) ListTables(context.Context, string) ([]model.Table, bool, error) {
	return s.tables, s.hit, s.err
}

func (s *stubTables) History(context.Context, string, string) ([]model.Reservation, error) {
	return []model.Reservation{}, s.err
}

func newTableServer(svc TableService) *echo.Echo {
	e := echo.New()
	h := NewTableHandler(svc)
	e.GET("/events/:event_id/tables", h.List)
	e.POST("/events/:event_id/tables/:table_id/reserve", h.Reserve)
	e.POST("/events/:event_id/tables/:table_id/cancel", h.Cancel)
	e.GET("/events/:event_id/tables/:table_id/history", h.History)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestReserveStatusMapping(t *testing.T) {
	alice := "alice"
	cases := []struct {
		name   string
		err    error
		result service.Result
		status int
		reason string
	}{
		{"ok", nil, service.Result{OK: true, Table: model.Table{ID: "t1", Status: model.TableReserved, ReservedBy: &alice}}, http.StatusOK, ""},
		{"conflict", service.ErrConflict, service.Result{PreviousStatus: model.TableReserved}, http.StatusConflict, ReasonConflict},
		{"not found", service.ErrNotFound, service.Result{}, http.StatusNotFound, ReasonNotFound},
		{"store down", fmt.Errorf("reserve: %w", service.ErrStoreUnavailable), service.Result{}, http.StatusInternalServerError, ReasonStoreUnavailable},
		{"timeout", fmt.Errorf("reserve: %w", service.ErrOutcomeUnknown), service.Result{}, http.StatusServiceUnavailable, ReasonOutcomeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTableServer(&stubTables{result: tc.result, err: tc.err})
			rec := do(e, http.MethodPost, "/events/e1/tables/t1/reserve", `{"user":"alice"}`)
			require.Equal(t, tc.status, rec.Code)
			body := decode(t, rec)
			if tc.reason == "" {
				assert.Equal(t, true, body["ok"])
				return
			}
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.reason, body["reason"])
		})
	}
}

func TestReserveConflictReportsCurrentStatus(t *testing.T) {
	e := newTableServer(&stubTables{err: service.ErrConflict, result: service.Result{PreviousStatus: model.TableReserved}})
	rec := do(e, http.MethodPost, "/events/e1/tables/t1/reserve", `{"user":"bob"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "reserved", decode(t, rec)["current_status"])
}

func TestReserveRequiresUser(t *testing.T) {
	e := newTableServer(&stubTables{})
	rec := do(e, http.MethodPost, "/events/e1/tables/t1/reserve", `{"user":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ReasonInvalidRequest, decode(t, rec)["reason"])
}

func TestTokenSubjectOverridesBody(t *testing.T) {
	svc := &stubTables{result: service.Result{OK: true}}
	e := echo.New()
	h := NewTableHandler(svc)
	e.POST("/events/:event_id/tables/:table_id/reserve", h.Reserve, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", "carol")
			return next(c)
		}
	})
	rec := do(e, http.MethodPost, "/events/e1/tables/t1/reserve", `{"user":"mallory"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "carol", svc.gotUser)
}

func TestListSetsCacheHeader(t *testing.T) {
	svc := &stubTables{tables: []model.Table{{EventID: "e1", ID: "t1", Status: model.TableFree}}}
	e := newTableServer(svc)

	rec := do(e, http.MethodGet, "/events/e1/tables", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))

	svc.hit = true
	rec = do(e, http.MethodGet, "/events/e1/tables", "")
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	tables := decode(t, rec)["tables"].([]any)
	assert.Len(t, tables, 1)
}

func TestInternalErrorTextIsHidden(t *testing.T) {
	e := newTableServer(&stubTables{err: fmt.Errorf("dial tcp 10.0.0.5:3306: refused")})
	rec := do(e, http.MethodPost, "/events/e1/tables/t1/cancel", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, ReasonInternal, body["reason"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}
