// Package dispatch sends built requests to origin servers through an HTTP
// response cache.
//
// The cache layer is a CachingTransport in front of a pooled, traced
// http.Transport. Entries are namespaced per HTTP client and held by a
// Store: MemoryStore for a single gateway process, RedisStore when
// replicas share a cache. Every response carries an x-fh-cache-status
// header of HIT, MISS or BYPASS, which the Dispatcher surfaces as
// Result.IsCacheHit.
//
// Each call is a single attempt bounded by the configured dispatch timeout.
package dispatch
