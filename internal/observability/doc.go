// Package observability groups the structured logging, Prometheus metrics
// and OpenTelemetry tracing used by the refresh worker and the CLI.
//
// Subpackages:
//   - logging: slog construction and per-run context fields
//   - metrics: Prometheus collectors for sources, search and PoC lookups
//   - tracing: spans around every upstream source call
package observability
