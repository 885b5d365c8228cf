package mcp

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
)

const instrumentationName = "github.com/fyrsmithlabs/issuetracker/internal/mcp"

// Metrics counts tool calls. A zero or nil Metrics records nothing.
type Metrics struct {
	calls    metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

// NewMetrics creates tool metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(instrumentationName), logger)
}

// newMetrics creates the instruments on meter. An instrument that cannot be
// created is logged and left nil.
func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := func(name string, err error) {
		if err != nil {
			logger.Warn("failed to create instrument", zap.String("instrument", name), zap.Error(err))
		}
	}

	var m Metrics
	var err error

	m.calls, err = meter.Int64Counter("issuetracker.mcp.tool.calls_total",
		metric.WithDescription("MCP tool calls by tool and outcome (ok or the store error kind)"),
		metric.WithUnit("{call}"))
	warn("calls", err)

	m.duration, err = meter.Float64Histogram("issuetracker.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool call duration"),
		metric.WithUnit("s"))
	warn("duration", err)

	m.inFlight, err = meter.Int64UpDownCounter("issuetracker.mcp.tool.in_flight",
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{call}"))
	warn("in_flight", err)

	return &m
}

// start marks a call to tool as in flight. The returned func ends it and
// records the outcome of err.
func (m *Metrics) start(ctx context.Context, tool string) func(err error) {
	if m == nil {
		return func(error) {}
	}

	began := time.Now()
	toolAttr := attribute.String("tool", tool)
	if m.inFlight != nil {
		m.inFlight.Add(ctx, 1, metric.WithAttributes(toolAttr))
	}

	return func(err error) {
		if m.inFlight != nil {
			m.inFlight.Add(ctx, -1, metric.WithAttributes(toolAttr))
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(began).Seconds(), metric.WithAttributes(toolAttr))
		}
		if m.calls != nil {
			m.calls.Add(ctx, 1, metric.WithAttributes(toolAttr, attribute.String("outcome", issue.Kind(err))))
		}
	}
}
