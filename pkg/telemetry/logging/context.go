package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RequestIDKey is the context key for inbound request IDs.
	RequestIDKey contextKey = "request_id"

	// ProjectIDKey is the context key for the authenticated project.
	ProjectIDKey contextKey = "project_id"

	// ClientIDKey is the context key for the target HTTP client.
	ClientIDKey contextKey = "client_id"

	// OperationIDKey is the context key for the target operation.
	OperationIDKey contextKey = "operation_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// WithProjectID adds a project ID to the context.
func WithProjectID(ctx context.Context, projectID string) context.Context {
	return context.WithValue(ctx, ProjectIDKey, projectID)
}

// GetProjectID retrieves the project ID from the context.
func GetProjectID(ctx context.Context) string {
	return stringValue(ctx, ProjectIDKey)
}

// WithEndpoint adds the target client and operation to the context.
func WithEndpoint(ctx context.Context, clientID, operationID string) context.Context {
	ctx = context.WithValue(ctx, ClientIDKey, clientID)
	return context.WithValue(ctx, OperationIDKey, operationID)
}

// GetClientID retrieves the client ID from the context.
func GetClientID(ctx context.Context) string {
	return stringValue(ctx, ClientIDKey)
}

// GetOperationID retrieves the operation ID from the context.
func GetOperationID(ctx context.Context) string {
	return stringValue(ctx, OperationIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// FromContext returns logger annotated with the identifiers stored in ctx.
// A nil logger means slog.Default().
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if fields := extractContextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}

func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range []contextKey{RequestIDKey, ProjectIDKey, ClientIDKey, OperationIDKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}
