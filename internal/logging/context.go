package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	projectKey
)

// Field keys added by ContextFields.
const (
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"
	FieldRequestID = "request.id"
	FieldProject   = "project"
)

// ContextFields returns the correlation fields carried by ctx: the active
// span, the HTTP request ID and the issue project.
func ContextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}

	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.Stringer(FieldTraceID, sc.TraceID()),
			zap.Stringer(FieldSpanID, sc.SpanID()),
		)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String(FieldRequestID, id))
	}
	if p := ProjectFromContext(ctx); p != "" {
		fields = append(fields, zap.String(FieldProject, p))
	}
	return fields
}

// WithRequestID tags ctx with the request ID. Empty IDs leave ctx as is.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithProject tags ctx with the project the request addresses.
func WithProject(ctx context.Context, project string) context.Context {
	if project == "" {
		return ctx
	}
	return context.WithValue(ctx, projectKey, project)
}

func ProjectFromContext(ctx context.Context) string {
	p, _ := ctx.Value(projectKey).(string)
	return p
}
