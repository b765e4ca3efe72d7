package dispatch

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"mercator-hq/apigate/pkg/telemetry/metrics"
)

// MemoryStore is an in-process Store backed by ttlcache.
type MemoryStore struct {
	cache   *ttlcache.Cache[string, *Entry]
	metrics *metrics.Collector
}

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
// A zero capacity is unbounded. Expired entries are swept in the
// background until Close.
func NewMemoryStore(capacity uint64, collector *metrics.Collector) *MemoryStore {
	opts := []ttlcache.Option[string, *Entry]{
		ttlcache.WithDisableTouchOnHit[string, *Entry](),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, *Entry](capacity))
	}

	s := &MemoryStore{
		cache:   ttlcache.New(opts...),
		metrics: collector,
	}
	s.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, _ *ttlcache.Item[string, *Entry]) {
		if reason != ttlcache.EvictionReasonDeleted {
			s.metrics.RecordCacheEviction(s.Name())
		}
		s.metrics.UpdateCacheSize(s.Name(), s.cache.Len())
	})

	go s.cache.Start()
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, entry *Entry, ttl time.Duration) error {
	s.cache.Set(key, entry, ttl)
	s.metrics.UpdateCacheSize(s.Name(), s.cache.Len())
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}

// Name implements Store.
func (s *MemoryStore) Name() string {
	return "memory"
}

// Close stops the expiry sweeper.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
