package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type runIDCtxKey struct{}
type sourceCtxKey struct{}
type collectionCtxKey struct{}
type requestCtxKey struct{}
type loggerCtxKey struct{}

// maxIDLen bounds context values copied into every log entry.
const maxIDLen = 128

// ContextFields extracts correlation data from ctx.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if v := RunIDFromContext(ctx); v != "" {
		fields = append(fields, zap.String("run.id", v))
	}
	if v := SourceFromContext(ctx); v != "" {
		fields = append(fields, zap.String("export.source", v))
	}
	if v := CollectionFromContext(ctx); v != "" {
		fields = append(fields, zap.String("collection", v))
	}
	if v := RequestIDFromContext(ctx); v != "" {
		fields = append(fields, zap.String("request.id", v))
	}
	return fields
}

// WithRunID tags ctx with the id of one ingestion run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return withString(ctx, runIDCtxKey{}, runID)
}

// RunIDFromContext returns the ingestion run id, or "".
func RunIDFromContext(ctx context.Context) string {
	return stringValue(ctx, runIDCtxKey{})
}

// WithSource tags ctx with the export source being processed.
func WithSource(ctx context.Context, source string) context.Context {
	return withString(ctx, sourceCtxKey{}, source)
}

// SourceFromContext returns the export source, or "".
func SourceFromContext(ctx context.Context) string {
	return stringValue(ctx, sourceCtxKey{})
}

// WithCollection tags ctx with the vector collection being read or written.
func WithCollection(ctx context.Context, collection string) context.Context {
	return withString(ctx, collectionCtxKey{}, collection)
}

// CollectionFromContext returns the collection name, or "".
func CollectionFromContext(ctx context.Context) string {
	return stringValue(ctx, collectionCtxKey{})
}

// WithRequestID tags ctx with the id of an MCP tool call.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestCtxKey{})
}

// Empty values leave ctx unchanged; long values are truncated.
func withString(ctx context.Context, key any, v string) context.Context {
	if v == "" {
		return ctx
	}
	if len(v) > maxIDLen {
		v = v[:maxIDLen]
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key any) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
