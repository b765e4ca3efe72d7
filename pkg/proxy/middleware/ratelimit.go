package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"mercator-hq/apigate/pkg/proxy"
	"mercator-hq/apigate/pkg/proxy/types"
)

// RateLimitMiddleware allows requests calls per window for each bearer
// token, falling back to the client IP for unauthenticated calls.
// Rejections use the JSON envelope with status 429.
func RateLimitMiddleware(requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(projectKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			_ = proxy.WriteErrorResponse(w, types.NewRateLimitError("Rate limit exceeded. Please retry later."))
		}),
	)
}

func projectKey(r *http.Request) (string, error) {
	if token, err := proxy.ExtractBearerToken(r); err == nil {
		return "key:" + token, nil
	}
	return httprate.KeyByIP(r)
}
