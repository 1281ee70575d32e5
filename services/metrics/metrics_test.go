package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver(t *testing.T) {
	obs := Observer{}
	cascadeBefore := testutil.ToFloat64(CascadeDeletes.WithLabelValues("class", "ok"))
	attBefore := testutil.ToFloat64(AttendanceSubmissions.WithLabelValues("rejected"))

	obs.ObserveCascade("class", "ok")
	obs.ObserveAttendance("rejected")
	obs.ObserveAttendance("rejected")

	assert.Equal(t, cascadeBefore+1, testutil.ToFloat64(CascadeDeletes.WithLabelValues("class", "ok")))
	assert.Equal(t, attBefore+2, testutil.ToFloat64(AttendanceSubmissions.WithLabelValues("rejected")))
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/classes/:id", func(c echo.Context) error {
		if c.Param("id") == "0" {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return c.NoContent(http.StatusOK)
	})

	ok := HTTPRequests.WithLabelValues(http.MethodGet, "/api/classes/:id", "200")
	missing := HTTPRequests.WithLabelValues(http.MethodGet, "/api/classes/:id", "404")
	okBefore, missingBefore := testutil.ToFloat64(ok), testutil.ToFloat64(missing)

	for _, id := range []string{"1", "2", "0"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classes/"+id, nil))
	}

	assert.Equal(t, okBefore+2, testutil.ToFloat64(ok))
	assert.Equal(t, missingBefore+1, testutil.ToFloat64(missing))
}

func TestHandler(t *testing.T) {
	ObserveDBPing(3 * time.Millisecond)
	Observer{}.ObserveCascade("student", "not_found")
	HTTPRequests.WithLabelValues(http.MethodGet, "/healthz", "200").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{"ebd_db_ping_seconds", "ebd_http_requests_total", "ebd_cascade_deletes_total"} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
