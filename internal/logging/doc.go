// Package logging provides structured logging for ragmemory.
//
// Logger wraps zap with context-aware methods. Correlation fields are pulled
// from the context on every call: OpenTelemetry trace and span ids, the
// ingestion run id, the export source, the target collection and the request
// id of an MCP tool call.
//
//	ctx = logging.WithRunID(ctx, runID)
//	ctx = logging.WithSource(ctx, "chatgpt")
//	logger.Info(ctx, "batch upserted", zap.Int("batch", 3))
//
// Output can go to stdout, stderr (required when stdout carries the MCP
// protocol) and an OpenTelemetry log provider. API keys are redacted by field
// name and by value pattern. Levels below Error are sampled per level;
// errors are never sampled.
//
// Tests use NewRecorder, which keeps entries in memory.
package logging
