// Package relay turns an origin response into the response returned to the
// gateway caller.
package relay

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/headers"
)

// Headers added to every relayed response.
const (
	RequestIDHeader = "x-apihero-request-id"
	DebugURIHeader  = "x-apihero-debug-uri"
)

// FinalResponse is the response written back to the caller.
type FinalResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Relay strips unsafe headers from the origin response and attaches the
// correlation and debug headers. Status and body pass through verbatim.
func Relay(origin *dispatch.Result, requestID, debugURI string) *FinalResponse {
	h := headers.StripUnsafeResponseHeaders(origin.Header)
	if requestID != "" {
		h.Set(RequestIDHeader, requestID)
	}
	if debugURI != "" {
		h.Set(DebugURIHeader, debugURI)
	}

	return &FinalResponse{
		StatusCode: origin.StatusCode,
		Header:     h,
		Body:       origin.Body,
	}
}

// WriteTo writes the response. Content-Length is recomputed from the body
// since the origin's value was stripped.
func (r *FinalResponse) WriteTo(w http.ResponseWriter) error {
	dst := w.Header()
	for name, values := range r.Header {
		dst[name] = append([]string(nil), values...)
	}
	if len(r.Body) == 0 {
		w.WriteHeader(r.StatusCode)
		return nil
	}
	dst.Set("Content-Length", strconv.Itoa(len(r.Body)))

	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}

// DebugURI builds the dashboard deep link for one call:
// <appOrigin>/workspaces/<ws>/projects/<project>/<clientID>/<METHOD>/<operationID>.
func DebugURI(appOrigin, workspaceSlug, projectSlug, clientID, method, operationID string) string {
	segments := []string{
		"workspaces", workspaceSlug,
		"projects", projectSlug,
		clientID,
		strings.ToUpper(method),
		operationID,
	}
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(appOrigin, "/") + "/" + strings.Join(segments, "/")
}
