// Package telemetry groups the gateway's observability packages:
//
//   - logging: slog setup with secret redaction and request-scoped fields
//   - metrics: Prometheus collectors for gateway calls, cache and request logs
//   - tracing: OpenTelemetry spans around the gateway pipeline
//   - health: liveness, readiness and version endpoints
package telemetry
