// Package observability provides structured logging, Prometheus metrics,
// health probes, optional OpenTelemetry tracing and graceful shutdown
// plumbing for the SCRCR backend.
package observability
