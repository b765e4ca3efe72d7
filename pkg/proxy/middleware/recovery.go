package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"mercator-hq/apigate/pkg/proxy"
	"mercator-hq/apigate/pkg/proxy/types"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope and logs the
// stack. Internal details never reach the caller.
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				_ = proxy.WriteErrorResponse(w, types.NewServerError(
					"An internal error occurred. Please try again later.",
				))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
