// Package tracing provides OpenTelemetry tracing for the gateway.
//
// When enabled, spans are exported over OTLP gRPC and W3C trace context is
// propagated both from inbound callers and onto outbound origin requests.
// When disabled, New returns a Tracer whose spans are noops.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, tracing.SpanDispatch)
//	defer span.End()
//
// Sampling is parent based. The configured strategy ("always", "never" or
// "ratio") only decides for root spans.
package tracing
