// Package telemetry wires OpenTelemetry tracing and metrics for issuetracker.
//
// When enabled, spans and metrics are exported over OTLP (gRPC or
// HTTP/protobuf) and the global providers are replaced so instruments
// created with otel.Meter and otel.Tracer reach the collector. When disabled
// the globals stay no-op.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Observability, version), logger)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Export failures never stop the service; a signal whose exporter could not
// be built is listed by Degraded. Tests use NewTestTelemetry, which records
// spans and metrics in memory without touching the globals.
package telemetry
