package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/conectaebd/backend/core/attendance"
	"github.com/conectaebd/backend/core/cascade"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebd", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "path", "code"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ebd", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
	AttendanceSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebd", Name: "attendance_submissions_total", Help: "Attendance submissions by outcome",
	}, []string{"outcome"})
	CascadeDeletes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ebd", Name: "cascade_deletes_total", Help: "Cascading deletes by entity and outcome",
	}, []string{"entity", "outcome"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ebd", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, AttendanceSubmissions, CascadeDeletes, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// Observer feeds the domain counters.
type Observer struct{}

var (
	_ cascade.Observer    = Observer{}
	_ attendance.Observer = Observer{}
)

func (Observer) ObserveCascade(entity, outcome string) {
	CascadeDeletes.WithLabelValues(entity, outcome).Inc()
}

func (Observer) ObserveAttendance(outcome string) {
	AttendanceSubmissions.WithLabelValues(outcome).Inc()
}

// Middleware counts requests by route template, so ids never become labels.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			// let the error handler write the response so its status is the one counted
			if err := next(c); err != nil {
				c.Error(err)
			}

			code := c.Response().Status
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := c.Request().Method
			HTTPRequests.WithLabelValues(method, path, strconv.Itoa(code)).Inc()
			HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
