// Package metrics exports Prometheus metrics for the gateway.
//
// A Collector groups three families: gateway calls and origin dispatches,
// the HTTP response cache, and request-log capture and delivery. Metric
// names are prefixed with the configured namespace and subsystem
// (apigate_gateway_ by default). Handler serves the registry for scraping.
package metrics
