// Package server is the gateway's HTTP front door.
//
// It mounts the gateway, the logs API and the operational endpoints on one
// chi router:
//
//   - POST /gateway/run: run one call through the gateway (rate limited when enabled)
//   - /logs/...: the request-log API, with CORS for the dashboard origin
//   - GET /health, /ready, /version: probes and build info
//   - GET /metrics: Prometheus scrape endpoint when metrics are enabled
//
// Every request passes through Recovery, then RequestID, then Logging, then
// tracing. Start serves until its context is cancelled and then shuts down
// gracefully within the configured timeout.
package server
