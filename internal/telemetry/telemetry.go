package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Telemetry installs the global tracer and meter providers and tears them
// down again. The store, HTTP and MCP packages record through otel.Meter and
// otel.Tracer, so they pick up whatever New installed.
type Telemetry struct {
	config *Config
	logger *zap.Logger

	mu        sync.Mutex
	shutdowns []func(context.Context) error
	degraded  []string
	running   bool
}

// New validates cfg and, when enabled, starts OTLP export. A failed
// exporter leaves that signal on the global no-op provider and marks the
// instance degraded; New itself only fails on invalid config.
func New(ctx context.Context, cfg *Config, logger *zap.Logger) (*Telemetry, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Telemetry{config: cfg, logger: logger}
	if !cfg.Enabled {
		return t, nil
	}

	res := newResource(cfg)

	if exp, err := newSpanExporter(ctx, cfg); err != nil {
		t.degrade("traces", wrapExporterErr("trace", err))
	} else {
		tp := newTracerProvider(cfg, res, exp)
		otel.SetTracerProvider(tp)
		t.shutdowns = append(t.shutdowns, tp.Shutdown)
	}

	if exp, err := newMetricExporter(ctx, cfg); err != nil {
		t.degrade("metrics", wrapExporterErr("metric", err))
	} else {
		mp := newMeterProvider(cfg, res, exp)
		otel.SetMeterProvider(mp)
		t.shutdowns = append(t.shutdowns, mp.Shutdown)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.running = true

	logger.Info("telemetry started",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("protocol", cfg.Protocol),
		zap.Strings("degraded", t.degraded),
	)
	return t, nil
}

// Shutdown flushes and stops the providers in reverse start order. Without
// a deadline on ctx the configured shutdown timeout applies. Calling it
// again is a no-op.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	shutdowns := t.shutdowns
	t.shutdowns = nil
	t.running = false
	t.mu.Unlock()

	if len(shutdowns) == 0 {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.config.ShutdownTime)
		defer cancel()
	}

	var errs []error
	for i := len(shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, shutdowns[i](ctx))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}

// IsEnabled reports whether export is running.
func (t *Telemetry) IsEnabled() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Degraded lists the signals ("traces", "metrics") whose exporter failed
// to start.
func (t *Telemetry) Degraded() []string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.degraded...)
}

func (t *Telemetry) degrade(signal string, err error) {
	t.degraded = append(t.degraded, signal)
	t.logger.Warn("telemetry degraded", zap.String("signal", signal), zap.Error(err))
}
