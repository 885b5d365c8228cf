package issue

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/issuetracker/internal/issue"

// Metrics records store activity.
type Metrics struct {
	meter      metric.Meter
	logger     *zap.Logger
	operations metric.Int64Counter
	stored     metric.Int64UpDownCounter
}

// NewMetrics creates store metrics on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return NewMetricsWithMeter(otel.Meter(instrumentationName), logger)
}

// NewMetricsWithMeter creates store metrics on meter.
func NewMetricsWithMeter(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{meter: meter, logger: logger}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.operations, err = m.meter.Int64Counter(
		"issuetracker.store.operations_total",
		metric.WithDescription("Issue store operations labeled by operation (create, list, update, delete) and outcome (ok, validation, missing_id, no_update_fields, not_found)."),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		m.logger.Warn("failed to create operations counter", zap.Error(err))
	}

	m.stored, err = m.meter.Int64UpDownCounter(
		"issuetracker.store.issues",
		metric.WithDescription("Issues currently held in memory, labeled by project"),
		metric.WithUnit("{issue}"),
	)
	if err != nil {
		m.logger.Warn("failed to create issues gauge", zap.Error(err))
	}
}

func (m *Metrics) recordOperation(ctx context.Context, op string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", Kind(err)),
	))
}

func (m *Metrics) adjustStored(ctx context.Context, project string, delta int64) {
	if m == nil || m.stored == nil {
		return
	}
	m.stored.Add(ctx, delta, metric.WithAttributes(attribute.String("project", project)))
}
