// Package gateway runs inbound gateway calls: it authenticates the caller,
// resolves the target operation, builds and dispatches the origin request,
// relays the response and hands the transaction to the request-log
// recorder without waiting for delivery.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/apigate/pkg/credentials"
	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/negotiate"
	"mercator-hq/apigate/pkg/proxy"
	"mercator-hq/apigate/pkg/proxy/middleware"
	"mercator-hq/apigate/pkg/proxy/types"
	"mercator-hq/apigate/pkg/relay"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/requestlog/recorder"
	"mercator-hq/apigate/pkg/schema"
	"mercator-hq/apigate/pkg/telemetry/logging"
	"mercator-hq/apigate/pkg/telemetry/metrics"
	"mercator-hq/apigate/pkg/telemetry/tracing"
)

// ProjectLookup resolves projects and operations. *catalog.Catalog
// implements it.
type ProjectLookup interface {
	GetProjectByKey(ctx context.Context, key, clientID string) (*schema.Project, bool, error)
	FindOperationData(ctx context.Context, clientID, operationID string) (*schema.OperationData, bool, error)
}

// Dispatcher sends outbound requests. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *request.OutboundRequest, opts dispatch.CacheOptions) (*dispatch.Result, error)
}

// Gateway serves POST /gateway/run.
type Gateway struct {
	lookup     ProjectLookup
	resolver   *credentials.Resolver
	builder    *request.Builder
	dispatcher Dispatcher
	recorder   *recorder.Recorder

	appOrigin    string
	maxBodyBytes int64

	metrics *metrics.Collector
	tracer  *tracing.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithAppOrigin sets the dashboard origin used for debug links.
func WithAppOrigin(origin string) Option {
	return func(g *Gateway) { g.appOrigin = origin }
}

// WithServerSelector replaces the first-server base URL policy.
func WithServerSelector(s request.ServerSelector) Option {
	return func(g *Gateway) { g.builder = request.NewBuilder(s) }
}

// WithMaxBodyBytes bounds inbound bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(g *Gateway) { g.maxBodyBytes = n }
}

// WithMetrics records gateway metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(g *Gateway) { g.metrics = c }
}

// WithTracer traces resolution.
func WithTracer(t *tracing.Tracer) Option {
	return func(g *Gateway) { g.tracer = t }
}

// New creates a Gateway. rec may be nil to disable request logging.
func New(lookup ProjectLookup, creds credentials.Store, dispatcher Dispatcher, rec *recorder.Recorder, opts ...Option) *Gateway {
	g := &Gateway{
		lookup:       lookup,
		resolver:     credentials.NewResolver(creds),
		builder:      request.NewBuilder(nil),
		dispatcher:   dispatcher,
		recorder:     rec,
		maxBodyBytes: proxy.DefaultMaxBodyBytes,
		logger:       slog.Default().With("component", "gateway"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result is a completed call.
type Result struct {
	Response        *relay.FinalResponse
	RequestID       string
	CacheStatus     string
	LogScheduled    bool
	GatewayDuration time.Duration

	// ResponseContent is the operation's documented response body that
	// best matches what the origin returned, or nil.
	ResponseContent *schema.ResponseContent
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := middleware.GetStartTime(ctx)
	if start.IsZero() {
		start = g.now()
	}

	result, err := g.handle(r, start)
	if err != nil {
		errResp := proxy.HandleError(err)
		g.observeRejection(ctx, err, errResp)
		g.metrics.RecordGatewayRequest(errResp.HTTPStatusCode(), g.now().Sub(start))
		_ = proxy.WriteErrorResponse(w, errResp)
		return
	}

	if err := result.Response.WriteTo(w); err != nil {
		logging.FromContext(ctx, g.logger).Warn("failed to write response", "error", err)
	}
	g.metrics.RecordGatewayRequest(result.Response.StatusCode, result.GatewayDuration)
}

func (g *Gateway) handle(r *http.Request, start time.Time) (*Result, error) {
	key, err := proxy.ExtractBearerToken(r)
	if err != nil {
		msg := "Missing authorization header"
		if errors.Is(err, proxy.ErrMalformedAuthorization) {
			msg = "Authorization header must be 'Bearer <project key>'"
		}
		return nil, reject(StateAuthenticating, ReasonUnauthorized, types.NewUnauthorizedError(msg), err)
	}

	body, err := proxy.ReadBody(r, g.maxBodyBytes)
	if err != nil {
		return nil, err
	}
	in, verr := ParseInput(body)
	if verr != nil {
		return nil, reject(StateAuthenticating, ReasonInvalidInput, verr.ToErrorResponse(), verr)
	}

	return g.Run(r.Context(), key, in, start)
}

// Run executes one call for an authenticated caller. start is when the
// inbound request was received.
func (g *Gateway) Run(ctx context.Context, key string, in *Input, start time.Time) (*Result, error) {
	ctx = logging.WithEndpoint(ctx, in.Endpoint.ClientID, in.Endpoint.ID)
	logger := logging.FromContext(ctx, g.logger)

	// AUTHENTICATING / RESOLVING
	project, client, data, err := g.resolve(ctx, key, in.Endpoint)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithProjectID(ctx, project.ID)
	tracing.SetEndpointAttributes(tracing.SpanFromContext(ctx), project.ID, client.ID, data.Operation.ID, data.Schema.ID)

	// BUILDING
	cred, err := g.resolver.ResolveCredential(ctx, client.ID, data.Schema, data.Operation)
	if err != nil {
		return nil, reject(StateBuilding, ReasonLookupFailed,
			types.NewServerError("Failed to load client credentials"), err)
	}
	outbound, err := g.builder.Build(data.Schema, data.Operation, in.Params, cred)
	if err != nil {
		return nil, reject(StateBuilding, ReasonBuildFailed,
			types.NewInvalidRequestError("", err.Error()), err)
	}

	// DISPATCHING: network failures are not retried.
	origin, err := g.dispatcher.Dispatch(ctx, outbound, dispatch.CacheOptions{
		Namespace: client.ID,
		Config:    client.CacheConfig,
	})
	if err != nil {
		logger.Error("origin dispatch failed", "error", err)
		return nil, err
	}

	// RELAYING
	requestID := uuid.NewString()
	debugURI := relay.DebugURI(g.appOrigin, project.WorkspaceSlug, project.Slug, client.ID, outbound.Method, data.Operation.ID)
	final := relay.Relay(origin, requestID, debugURI)
	gatewayDuration := g.now().Sub(start)
	content := documentedContent(data.Operation, origin)
	if content == nil {
		logger.Debug("origin response not described by operation",
			"status", origin.StatusCode,
			"content_type", origin.Header.Get("Content-Type"),
		)
	}

	// LOGGING: scheduled, never awaited.
	scheduled := false
	if g.recorder != nil {
		_, scheduled = g.recorder.Capture(ctx, recorder.CaptureInput{
			RequestID:       requestID,
			ProjectKey:      key,
			ProjectID:       project.ID,
			ClientID:        client.ID,
			OperationID:     data.Operation.ID,
			Payload:         in.RawParams,
			Request:         outbound,
			Response:        origin,
			GatewayDuration: gatewayDuration,
		})
	}
	tracing.SetRequestLogAttributes(tracing.SpanFromContext(ctx), requestID, scheduled)

	logger.Debug("gateway call responded",
		"request_id", requestID,
		"status", origin.StatusCode,
		"cache_status", origin.CacheStatus,
		"gateway_ms", gatewayDuration.Milliseconds(),
	)

	return &Result{
		Response:        final,
		RequestID:       requestID,
		CacheStatus:     origin.CacheStatus,
		LogScheduled:    scheduled,
		GatewayDuration: gatewayDuration,
		ResponseContent: content,
	}, nil
}

// documentedContent matches the origin response against the operation's
// response bodies by status, then by Content-Type.
func documentedContent(op *schema.Operation, origin *dispatch.Result) *schema.ResponseContent {
	body, ok := negotiate.SelectResponseBody(op.ResponseBodies, origin.StatusCode)
	if !ok {
		return nil
	}
	content, ok := negotiate.SelectBestContent(body.Contents, origin.Header.Get("Content-Type"))
	if !ok {
		return nil
	}
	return content
}

func (g *Gateway) resolve(ctx context.Context, key string, ep Endpoint) (*schema.Project, *schema.HTTPClient, *schema.OperationData, error) {
	ctx, span := g.tracer.Start(ctx, tracing.SpanResolve)
	defer span.End()

	project, ok, err := g.lookup.GetProjectByKey(ctx, key, ep.ClientID)
	if err != nil {
		return nil, nil, nil, reject(StateAuthenticating, ReasonLookupFailed,
			types.NewServerError("Failed to look up project"), err)
	}
	if !ok {
		return nil, nil, nil, reject(StateAuthenticating, ReasonProjectNotFound,
			types.NewUnauthorizedError("Invalid project key for client "+ep.ClientID), nil)
	}

	client, ok := project.Client(ep.ClientID)
	if !ok {
		return nil, nil, nil, reject(StateAuthenticating, ReasonClientNotFound,
			types.NewNotFoundError(fmt.Sprintf("Client %s not found", ep.ClientID)), nil)
	}

	data, ok, err := g.lookup.FindOperationData(ctx, ep.ClientID, ep.ID)
	if err != nil {
		return nil, nil, nil, reject(StateResolving, ReasonLookupFailed,
			types.NewServerError("Failed to look up operation"), err)
	}
	if !ok {
		return nil, nil, nil, reject(StateResolving, ReasonOperationNotFound,
			types.NewInvalidRequestError("", fmt.Sprintf("Operation %s not found for client %s", ep.ID, ep.ClientID)), nil)
	}

	return project, client, data, nil
}

func (g *Gateway) observeRejection(ctx context.Context, err error, errResp *types.ErrorResponse) {
	reason := ReasonDispatchFailed
	state := StateDispatching
	var rej *RejectionError
	if errors.As(err, &rej) {
		reason, state = rej.Reason, rej.State
	} else if !errors.As(err, new(*dispatch.Error)) {
		reason, state = ReasonInvalidInput, StateAuthenticating
	}

	g.metrics.RecordRejection(reason)
	tracing.SetRejection(tracing.SpanFromContext(ctx), reason)

	logger := logging.FromContext(ctx, g.logger)
	level := slog.LevelInfo
	if errResp.HTTPStatusCode() >= 500 {
		level = slog.LevelError
	}
	logger.Log(ctx, level, "gateway call rejected",
		"state", state,
		"reason", reason,
		"status", errResp.HTTPStatusCode(),
		"error", err,
	)
}
