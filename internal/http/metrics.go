package http

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const httpInstrumentationName = "github.com/fyrsmithlabs/issuetracker/internal/http"

// latencyBuckets suit an in-memory store: most requests finish well under
// a millisecond.
var latencyBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.25, 1}

// HTTPMetrics records request counts, latency and concurrency.
type HTTPMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewHTTPMetrics creates request metrics on the global meter provider.
func NewHTTPMetrics(logger *zap.Logger) *HTTPMetrics {
	return newHTTPMetrics(otel.Meter(httpInstrumentationName), logger)
}

func newHTTPMetrics(meter metric.Meter, logger *zap.Logger) *HTTPMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("failed to create instrument", zap.String("instrument", name), zap.Error(err))
		}
	}

	var m HTTPMetrics
	var err error

	m.requests, err = meter.Int64Counter("issuetracker.http.requests_total",
		metric.WithDescription("HTTP requests by method, route and status class"),
		metric.WithUnit("{request}"))
	warn("requests", err)

	m.latency, err = meter.Float64Histogram("issuetracker.http.request_duration_seconds",
		metric.WithDescription("HTTP request latency by method and route"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...))
	warn("latency", err)

	m.inFlight, err = meter.Int64UpDownCounter("issuetracker.http.in_flight",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"))
	warn("in_flight", err)

	return &m
}

// MetricsMiddleware records every request under its route pattern, so
// /api/issues/:project is one series however many projects exist. Handler
// errors are rendered here so the recorded status is the one sent.
func (m *HTTPMetrics) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			began := time.Now()

			if m.inFlight != nil {
				m.inFlight.Add(ctx, 1)
				defer m.inFlight.Add(ctx, -1)
			}

			if err := next(c); err != nil {
				c.Error(err)
			}

			method := attribute.String("method", c.Request().Method)
			route := attribute.String("route", normalizePath(c.Path()))
			if m.requests != nil {
				m.requests.Add(ctx, 1, metric.WithAttributes(method, route,
					attribute.String("status_class", statusClass(c.Response().Status))))
			}
			if m.latency != nil {
				m.latency.Record(ctx, time.Since(began).Seconds(), metric.WithAttributes(method, route))
			}
			return nil
		}
	}
}

// normalizePath collapses requests that matched no route.
func normalizePath(path string) string {
	if path == "" || path == "/*" {
		return "unmatched"
	}
	return path
}

// statusClass buckets a status code as "2xx", "4xx" and so on.
func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
