// Package headers holds the header rules shared by the response relay and
// the request log recorder: credential obfuscation for logged request
// headers and removal of response headers that must not be re-emitted.
package headers

import (
	"net/http"
	"strings"
)

// Mask replaces credential material in logged headers.
const Mask = "************"

// UnsafeResponseHeaders lists the response headers stripped before an origin
// response is relayed. Keys are lower case.
//
// location is included because relaying a redirect without its body leaves
// callers with an empty response.
var UnsafeResponseHeaders = map[string]struct{}{
	"connection":                {},
	"content-encoding":          {},
	"content-security-policy":   {},
	"date":                      {},
	"server":                    {},
	"strict-transport-security": {},
	"transfer-encoding":         {},
	"content-length":            {},
	"location":                  {},
}

// IsUnsafeResponseHeader reports whether name is stripped on relay.
func IsUnsafeResponseHeader(name string) bool {
	_, ok := UnsafeResponseHeaders[strings.ToLower(name)]
	return ok
}

// ObfuscateRequestHeaders returns a copy of headers with the authorization
// credential masked. "<scheme> <token>" keeps the scheme; any other shape is
// replaced entirely.
func ObfuscateRequestHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if strings.EqualFold(name, "authorization") {
			out[name] = ObfuscateAuthorization(value)
			continue
		}
		out[name] = value
	}
	return out
}

// ObfuscateAuthorization masks a single Authorization header value.
func ObfuscateAuthorization(value string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || scheme == "" || strings.TrimSpace(token) == "" {
		return Mask
	}
	return scheme + " " + Mask
}

// StripUnsafeResponseHeaders returns a copy of h without the unsafe headers.
func StripUnsafeResponseHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if IsUnsafeResponseHeader(name) {
			continue
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

// Header is a single name/value pair in wire order.
type Header struct {
	Name  string
	Value string
}

// StripUnsafeHeaderList is the order-preserving form of
// StripUnsafeResponseHeaders.
func StripUnsafeHeaderList(list []Header) []Header {
	out := make([]Header, 0, len(list))
	for _, hdr := range list {
		if IsUnsafeResponseHeader(hdr.Name) {
			continue
		}
		out = append(out, hdr)
	}
	return out
}

// Flatten converts h to a map keyed by lower-case name, joining repeated
// values with ", ".
func Flatten(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
