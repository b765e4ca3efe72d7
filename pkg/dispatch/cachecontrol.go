package dispatch

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// directives is a parsed Cache-Control header.
type directives map[string]string

func parseCacheControl(h http.Header) directives {
	d := directives{}
	for _, line := range h.Values("Cache-Control") {
		for _, part := range strings.Split(line, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			name, value, _ := strings.Cut(part, "=")
			d[strings.ToLower(strings.TrimSpace(name))] = strings.Trim(strings.TrimSpace(value), `"`)
		}
	}
	return d
}

func (d directives) has(name string) bool {
	_, ok := d[name]
	return ok
}

// seconds returns a non-negative delta-seconds directive.
func (d directives) seconds(name string) (time.Duration, bool) {
	v, ok := d[name]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// forbidsStore reports whether a shared cache must not keep the response.
func (d directives) forbidsStore() bool {
	return d.has("no-store") || d.has("private") || d.has("no-cache")
}

// originTTL is the freshness lifetime granted by the origin: s-maxage,
// then max-age.
func originTTL(h http.Header) time.Duration {
	d := parseCacheControl(h)
	if d.forbidsStore() {
		return 0
	}
	if ttl, ok := d.seconds("s-maxage"); ok {
		return ttl
	}
	if ttl, ok := d.seconds("max-age"); ok {
		return ttl
	}
	return 0
}
