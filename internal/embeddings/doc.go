// Package embeddings turns chunk and query text into fixed-length vectors.
//
// Two providers are available: FastEmbed runs a local ONNX model in process
// (requires cgo), TEI calls a text-embeddings-inference HTTP server. Both
// report generation metrics through OpenTelemetry.
package embeddings
