package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/apigate/pkg/requestlog"
)

// MemoryStorage keeps request logs in process memory. When maxRecords is
// positive the oldest logs are dropped beyond it.
type MemoryStorage struct {
	logs       map[string]*requestlog.RequestLog
	maxRecords int
	mu         sync.RWMutex
}

// NewMemoryStorage creates an in-memory backend.
func NewMemoryStorage(maxRecords int) *MemoryStorage {
	return &MemoryStorage{
		logs:       make(map[string]*requestlog.RequestLog),
		maxRecords: maxRecords,
	}
}

// Store implements requestlog.Storage.
func (s *MemoryStorage) Store(_ context.Context, log *requestlog.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logCopy := *log
	s.logs[log.ID] = &logCopy

	if s.maxRecords > 0 && len(s.logs) > s.maxRecords {
		sorted := s.sortedLocked("asc")
		for _, old := range sorted[:len(sorted)-s.maxRecords] {
			delete(s.logs, old.ID)
		}
	}
	return nil
}

// Get implements requestlog.Storage.
func (s *MemoryStorage) Get(_ context.Context, projectID, id string) (*requestlog.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[id]
	if !ok || log.ProjectID != projectID {
		return nil, requestlog.NewNotFoundError(projectID, id)
	}
	logCopy := *log
	return &logCopy, nil
}

// Query implements requestlog.Storage.
func (s *MemoryStorage) Query(_ context.Context, query *requestlog.Query) ([]*requestlog.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return paginate(s.matchLocked(query), query), nil
}

// QueryStream implements requestlog.Storage.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *requestlog.Query) (<-chan *requestlog.RequestLog, <-chan error, error) {
	logs, _ := s.Query(ctx, query)

	logsCh := make(chan *requestlog.RequestLog, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(logsCh)
		defer close(errCh)

		for _, log := range logs {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case logsCh <- log:
			}
		}
	}()

	return logsCh, errCh, nil
}

// Count implements requestlog.Storage.
func (s *MemoryStorage) Count(_ context.Context, query *requestlog.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, log := range s.logs {
		if query.Matches(log) {
			n++
		}
	}
	return n, nil
}

// Delete implements requestlog.Storage.
func (s *MemoryStorage) Delete(_ context.Context, query *requestlog.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, log := range s.logs {
		if query.Matches(log) {
			delete(s.logs, id)
			n++
		}
	}
	return n, nil
}

// Close implements requestlog.Storage.
func (s *MemoryStorage) Close() error {
	return nil
}

func (s *MemoryStorage) matchLocked(query *requestlog.Query) []*requestlog.RequestLog {
	var out []*requestlog.RequestLog
	for _, log := range s.sortedLocked(query.SortOrder) {
		if query.Matches(log) {
			logCopy := *log
			out = append(out, &logCopy)
		}
	}
	return out
}

// sortedLocked orders logs by CreatedAt then ID. Descending unless order
// is "asc".
func (s *MemoryStorage) sortedLocked(order string) []*requestlog.RequestLog {
	out := make([]*requestlog.RequestLog, 0, len(s.logs))
	for _, log := range s.logs {
		out = append(out, log)
	}
	asc := order == "asc"
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if asc {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
	return out
}

func paginate(logs []*requestlog.RequestLog, query *requestlog.Query) []*requestlog.RequestLog {
	if query.Offset >= len(logs) {
		return []*requestlog.RequestLog{}
	}
	logs = logs[query.Offset:]
	if query.Limit > 0 && query.Limit < len(logs) {
		logs = logs[:query.Limit]
	}
	return logs
}
