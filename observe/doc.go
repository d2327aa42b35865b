// Package observe provides observability primitives: a structured JSON
// logger, OpenTelemetry tracer and meter setup, metrics for the event
// counter aggregator, and HTTP middleware.
//
// It performs no I/O beyond exporter setup and log writes. Consumers wire the
// observer into the aggregator and the HTTP server.
package observe
