// Package telemetry sets up OpenTelemetry tracing and metrics for ragmemory.
//
// When enabled, spans and metrics are exported over OTLP (gRPC by default,
// HTTP/protobuf on request) and the providers are installed globally so that
// package-level tracers in ingest, embeddings and vectorstore pick them up.
// When disabled, or when an exporter cannot be built, the global no-op
// providers stay in place and the instance reports itself degraded.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans in memory and reads
// metrics through a manual reader.
package telemetry
