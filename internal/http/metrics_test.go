package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/issuetracker/internal/telemetry"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	m := newHTTPMetrics(tt.Meter(httpInstrumentationName), nil)

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/api/issues/:project", func(c echo.Context) error {
		return c.JSON(http.StatusOK, []string{})
	})

	for _, path := range []string{"/api/issues/alpha", "/api/issues/beta", "/nowhere"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	rm, err := tt.Collect(context.Background())
	require.NoError(t, err)

	issues, _ := telemetry.Sum(rm, "issuetracker.http.requests_total",
		attribute.String("route", "/api/issues/:project"), attribute.String("status_class", "2xx"))
	assert.Equal(t, int64(2), issues, "projects share one route series")

	total, _ := telemetry.Sum(rm, "issuetracker.http.requests_total")
	assert.Equal(t, int64(3), total)

	notFound, _ := telemetry.Sum(rm, "issuetracker.http.requests_total", attribute.String("status_class", "4xx"))
	assert.Equal(t, int64(1), notFound)

	var recordings uint64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if hist, ok := md.Data.(metricdata.Histogram[float64]); ok && md.Name == "issuetracker.http.request_duration_seconds" {
				for _, dp := range hist.DataPoints {
					recordings += dp.Count
				}
			}
		}
	}
	assert.Equal(t, uint64(3), recordings)

	inFlight, _ := telemetry.Sum(rm, "issuetracker.http.in_flight")
	assert.Equal(t, int64(0), inFlight)
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(500))
	assert.Equal(t, "unknown", statusClass(0))
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/*", "unmatched"},
		{"/health", "/health"},
		{"/api/issues/:project", "/api/issues/:project"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, normalizePath(tt.input), "normalizePath(%q)", tt.input)
	}
}
