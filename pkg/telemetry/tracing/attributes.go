package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanGatewayRequest = "gateway.request"
	SpanResolve        = "gateway.resolve"
	SpanDispatch       = "gateway.dispatch"
	SpanLogDelivery    = "requestlog.deliver"
)

// Attribute keys.
const (
	AttrHTTPMethod     = "http.method"
	AttrHTTPTarget     = "http.target"
	AttrProjectID      = "apigate.project.id"
	AttrClientID       = "apigate.client.id"
	AttrOperationID    = "apigate.operation.id"
	AttrSchemaID       = "apigate.schema.id"
	AttrCacheStatus    = "apigate.cache.status"
	AttrCacheTTL       = "apigate.cache.ttl"
	AttrOriginURL      = "apigate.origin.url"
	AttrOriginStatus   = "apigate.origin.status_code"
	AttrRejection      = "apigate.rejection"
	AttrRequestLogID   = "apigate.request_log.id"
	AttrRequestLogSent = "apigate.request_log.sent"
)

// SetRequestAttributes records the inbound request line.
func SetRequestAttributes(span trace.Span, r *http.Request) {
	span.SetAttributes(
		attribute.String(AttrHTTPMethod, r.Method),
		attribute.String(AttrHTTPTarget, r.URL.Path),
	)
}

// SetEndpointAttributes records the resolved project, client and operation.
func SetEndpointAttributes(span trace.Span, projectID, clientID, operationID, schemaID string) {
	span.SetAttributes(
		attribute.String(AttrProjectID, projectID),
		attribute.String(AttrClientID, clientID),
		attribute.String(AttrOperationID, operationID),
		attribute.String(AttrSchemaID, schemaID),
	)
}

// SetDispatchAttributes records the origin call outcome.
func SetDispatchAttributes(span trace.Span, url string, status int, cacheStatus string) {
	span.SetAttributes(
		attribute.String(AttrOriginURL, url),
		attribute.Int(AttrOriginStatus, status),
		attribute.String(AttrCacheStatus, cacheStatus),
	)
}

// SetRequestLogAttributes records the request-log correlation ID and
// whether its delivery was scheduled.
func SetRequestLogAttributes(span trace.Span, id string, scheduled bool) {
	span.SetAttributes(
		attribute.String(AttrRequestLogID, id),
		attribute.Bool(AttrRequestLogSent, scheduled),
	)
}

// SetRejection records why the gateway rejected a call.
func SetRejection(span trace.Span, reason string) {
	span.SetAttributes(attribute.String(AttrRejection, reason))
}
