package dispatch

import (
	"context"
	"net/http"
	"time"
)

// Entry is a stored origin response.
type Entry struct {
	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// Store holds cached responses keyed by namespaced request identity.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) (*Entry, bool, error)

	// Set stores entry for ttl.
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Name identifies the backend in metrics and logs.
	Name() string

	// Close releases backend resources.
	Close() error
}
