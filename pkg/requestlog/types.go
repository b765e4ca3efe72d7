package requestlog

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// RequestLog is the record of one proxied call. It is created once by the
// recorder and never modified afterwards.
type RequestLog struct {
	// ID is the correlation ID returned to the caller in
	// x-apihero-request-id.
	ID          string `json:"id"`
	ProjectID   string `json:"projectId"`
	ClientID    string `json:"clientId,omitempty"`
	OperationID string `json:"operationId,omitempty"`

	Method     string `json:"method"`
	StatusCode int    `json:"statusCode"`
	BaseURL    string `json:"baseUrl"`
	Path       string `json:"path"`
	Search     string `json:"search"`

	// RequestHeaders has the Authorization value masked.
	RequestHeaders  map[string]string `json:"requestHeaders"`
	RequestBody     json.RawMessage   `json:"requestBody,omitempty"`
	ResponseHeaders map[string]string `json:"responseHeaders"`

	// ResponseBody is the parsed origin body, or JSON null when the body
	// was not valid JSON.
	ResponseBody json.RawMessage `json:"responseBody"`

	IsCacheHit   bool  `json:"isCacheHit"`
	ResponseSize int64 `json:"responseSize"`

	// RequestDuration and GatewayDuration are in milliseconds.
	RequestDuration float64 `json:"requestDuration"`
	GatewayDuration float64 `json:"gatewayDuration"`

	CreatedAt time.Time `json:"createdAt"`
}

// Milliseconds converts d to fractional milliseconds.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Status filters for Query.
const (
	StatusSuccess = "success" // status < 400
	StatusError   = "error"   // status >= 400
)

// Query filters stored request logs.
type Query struct {
	ProjectID string `json:"project_id,omitempty"`
	ClientID  string `json:"client_id,omitempty"`

	// Time range on CreatedAt, both inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	Method     string `json:"method,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Status     string `json:"status,omitempty"`
	CacheHit   *bool  `json:"cache_hit,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder on CreatedAt: "asc" or "desc".
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage persists request logs. Implementations must be safe for
// concurrent use.
type Storage interface {
	// Store persists a log.
	Store(ctx context.Context, log *RequestLog) error

	// Get returns one log of a project. A missing log is a *NotFoundError.
	Get(ctx context.Context, projectID, id string) (*RequestLog, error)

	// Query returns logs matching the filters.
	Query(ctx context.Context, query *Query) ([]*RequestLog, error)

	// QueryStream streams matching logs. Both channels are closed when the
	// query completes; errCh carries at most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *RequestLog, <-chan error, error)

	// Count returns the number of matching logs.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching logs, ignoring pagination, and returns how
	// many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases backend resources.
	Close() error
}

// Exporter writes request logs in a file format.
type Exporter interface {
	Export(ctx context.Context, logs []*RequestLog, w io.Writer) error
}

// Sink receives completed request logs from the recorder.
type Sink interface {
	Write(ctx context.Context, projectID string, log *RequestLog) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, projectID string, log *RequestLog) error

// Write implements Sink.
func (f SinkFunc) Write(ctx context.Context, projectID string, log *RequestLog) error {
	return f(ctx, projectID, log)
}

// StorageSink writes logs straight into a Storage.
type StorageSink struct {
	Storage Storage
}

// Write implements Sink.
func (s StorageSink) Write(ctx context.Context, projectID string, log *RequestLog) error {
	log.ProjectID = projectID
	return s.Storage.Store(ctx, log)
}
