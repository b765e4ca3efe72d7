// Package logging configures log/slog for apigate.
//
// Setup builds a JSON or text handler from configuration, optionally wrapped
// in a handler that masks credentials (bearer and basic tokens, API keys,
// passwords, URL user info) in every string attribute, and installs it as
// the slog default. Components then log through
// slog.Default().With("component", name).
//
// Request-scoped identifiers travel in the context:
//
//	ctx = logging.WithRequestID(ctx, id)
//	ctx = logging.WithEndpoint(ctx, clientID, operationID)
//	logging.FromContext(ctx, logger).Info("dispatched", "status", 200)
package logging
