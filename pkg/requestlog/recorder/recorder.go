package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/headers"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/telemetry/metrics"
	"mercator-hq/apigate/pkg/telemetry/tracing"
)

// Capture outcomes, also used as metric labels.
const (
	OutcomeScheduled      = "scheduled"
	OutcomeDisabled       = "disabled"
	OutcomeNoProject      = "skipped_no_project"
	OutcomeInvalidPayload = "skipped_invalid_payload"
	OutcomeNotJSON        = "skipped_not_json"
	OutcomeDropped        = "dropped"
)

// CaptureInput is everything known about one completed call.
type CaptureInput struct {
	// RequestID is the correlation ID already sent to the caller. A new
	// one is generated when empty.
	RequestID string

	// ProjectKey is the caller's project key. Logging is skipped without it.
	ProjectKey  string
	ProjectID   string
	ClientID    string
	OperationID string

	// Payload is the raw params object the caller sent. Logging is skipped
	// when it is missing or not valid JSON.
	Payload []byte

	Request  *request.OutboundRequest
	Response *dispatch.Result

	GatewayDuration time.Duration
}

// Recorder builds request logs and delivers them to a Sink in the
// background. Delivery failures are logged and counted, never returned.
type Recorder struct {
	sink      requestlog.Sink
	scheduler Scheduler
	enabled   bool
	metrics   *metrics.Collector
	tracer    *tracing.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMetrics records capture and delivery metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Recorder) { r.metrics = c }
}

// WithTracer traces deliveries.
func WithTracer(t *tracing.Tracer) Option {
	return func(r *Recorder) { r.tracer = t }
}

// WithDisabled turns Capture into a no-op.
func WithDisabled() Option {
	return func(r *Recorder) { r.enabled = false }
}

// New creates a Recorder delivering to sink through scheduler.
func New(sink requestlog.Sink, scheduler Scheduler, opts ...Option) *Recorder {
	r := &Recorder{
		sink:      sink,
		scheduler: scheduler,
		enabled:   true,
		logger:    slog.Default().With("component", "requestlog.recorder"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Capture builds a RequestLog for in and schedules its delivery. It
// returns the log's correlation ID and whether a delivery was scheduled.
// Capture never blocks on the sink.
func (r *Recorder) Capture(ctx context.Context, in CaptureInput) (string, bool) {
	requestID := in.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if outcome := r.skipReason(in); outcome != "" {
		r.metrics.RecordLogCapture(outcome)
		r.logger.Debug("request log skipped",
			"request_id", requestID,
			"reason", outcome,
		)
		return requestID, false
	}

	log := r.build(requestID, in)
	projectID := in.ProjectID
	accepted := r.scheduler.Schedule("requestlog:"+requestID, func(taskCtx context.Context) {
		r.deliver(tracing.WithSpanFrom(taskCtx, ctx), projectID, log)
	})
	if !accepted {
		r.metrics.RecordLogCapture(OutcomeDropped)
		return requestID, false
	}

	r.metrics.RecordLogCapture(OutcomeScheduled)
	return requestID, true
}

// Close drains pending deliveries.
func (r *Recorder) Close(ctx context.Context) error {
	return r.scheduler.Close(ctx)
}

func (r *Recorder) skipReason(in CaptureInput) string {
	switch {
	case !r.enabled:
		return OutcomeDisabled
	case in.ProjectKey == "":
		return OutcomeNoProject
	case len(in.Payload) == 0 || !gjson.ValidBytes(in.Payload):
		return OutcomeInvalidPayload
	case in.Request == nil || in.Response == nil || !IsJSONContentType(in.Response.Header.Get("Content-Type")):
		return OutcomeNotJSON
	}
	return ""
}

func (r *Recorder) build(requestID string, in CaptureInput) *requestlog.RequestLog {
	req, resp := in.Request, in.Response

	log := &requestlog.RequestLog{
		ID:              requestID,
		ProjectID:       in.ProjectID,
		ClientID:        in.ClientID,
		OperationID:     in.OperationID,
		Method:          req.Method,
		StatusCode:      resp.StatusCode,
		BaseURL:         req.BaseURL,
		Path:            req.Path,
		Search:          req.Query,
		RequestHeaders:  headers.ObfuscateRequestHeaders(headers.Flatten(req.Header)),
		ResponseHeaders: headers.Flatten(resp.Header),
		ResponseBody:    parseBody(resp.Body),
		IsCacheHit:      resp.IsCacheHit,
		ResponseSize:    responseSize(resp),
		RequestDuration: requestlog.Milliseconds(resp.RequestDuration),
		GatewayDuration: requestlog.Milliseconds(in.GatewayDuration),
		CreatedAt:       r.now().UTC(),
	}
	if len(req.Body) > 0 && gjson.ValidBytes(req.Body) {
		log.RequestBody = json.RawMessage(req.Body)
	}
	return log
}

func (r *Recorder) deliver(ctx context.Context, projectID string, log *requestlog.RequestLog) {
	ctx, span := r.tracer.Start(ctx, tracing.SpanLogDelivery)
	defer span.End()

	start := time.Now()
	err := r.sink.Write(ctx, projectID, log)
	duration := time.Since(start)
	r.metrics.RecordLogWrite(err == nil, duration)

	if err != nil {
		tracing.SetError(span, err)
		r.logger.Error("failed to deliver request log",
			"request_id", log.ID,
			"project_id", projectID,
			"error", err,
		)
		return
	}

	r.logger.Debug("request log delivered",
		"request_id", log.ID,
		"project_id", projectID,
		"status", log.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// parseBody returns body when it is valid JSON, else JSON null.
func parseBody(body []byte) json.RawMessage {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return json.RawMessage("null")
	}
	return json.RawMessage(body)
}

// responseSize prefers the origin Content-Length, then the body length.
func responseSize(resp *dispatch.Result) int64 {
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return int64(len(resp.Body))
}

// IsJSONContentType reports whether contentType is application/json or a
// +json media type.
func IsJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
