package requestlog

import (
	"errors"
	"fmt"
	"strings"
)

// Query limits used when no configuration applies.
const (
	DefaultLimit = 100
	MaxLimit     = 10000
)

// Validate checks the query against maxLimit. A maxLimit of 0 uses MaxLimit.
func (q *Query) Validate(maxLimit int) error {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > maxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", maxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}

	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}

	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, errors.New("start_time must be before end_time"))
	}

	switch q.Status {
	case "", StatusSuccess, StatusError:
	default:
		return NewQueryError(q, fmt.Errorf("invalid status: %s (must be 'success' or 'error')", q.Status))
	}

	if q.StatusCode != 0 && (q.StatusCode < 100 || q.StatusCode > 599) {
		return NewQueryError(q, fmt.Errorf("invalid status code: %d", q.StatusCode))
	}

	for _, r := range q.Method {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return NewQueryError(q, fmt.Errorf("invalid method: %q", q.Method))
		}
	}

	return nil
}

// ApplyDefaults fills in the limit and sort order.
func (q *Query) ApplyDefaults(defaultLimit int) {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
	q.Method = strings.ToUpper(q.Method)
}

// Matches reports whether log satisfies the query filters. Pagination is
// not considered.
func (q *Query) Matches(log *RequestLog) bool {
	if q.ProjectID != "" && log.ProjectID != q.ProjectID {
		return false
	}
	if q.ClientID != "" && log.ClientID != q.ClientID {
		return false
	}
	if q.StartTime != nil && log.CreatedAt.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && log.CreatedAt.After(*q.EndTime) {
		return false
	}
	if q.Method != "" && !strings.EqualFold(log.Method, q.Method) {
		return false
	}
	if q.StatusCode != 0 && log.StatusCode != q.StatusCode {
		return false
	}
	switch q.Status {
	case StatusSuccess:
		if log.StatusCode >= 400 {
			return false
		}
	case StatusError:
		if log.StatusCode < 400 {
			return false
		}
	}
	if q.CacheHit != nil && log.IsCacheHit != *q.CacheHit {
		return false
	}
	return true
}
