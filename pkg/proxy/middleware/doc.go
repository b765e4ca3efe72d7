// Package middleware provides the HTTP middleware wrapped around the
// gateway and logs API routes.
//
// The server chains them outermost first:
//
//	Recovery -> RequestID -> Logging -> route
//
// RequestID runs before Logging so completion lines carry the ID.
// RateLimitMiddleware guards /gateway/run per project key and
// CORSMiddleware opens the logs API to the dashboard origin.
package middleware
