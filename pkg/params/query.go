package params

import (
	"net/url"
	"strings"
)

// QueryEntry is a single key=value pair of a query string.
type QueryEntry struct {
	Key   string
	Value string
}

// Query is an ordered list of query entries. Unlike url.Values it keeps
// insertion order when encoded.
type Query []QueryEntry

// Add appends an entry.
func (q *Query) Add(key, value string) {
	*q = append(*q, QueryEntry{Key: key, Value: value})
}

// Encode renders the query string without a leading "?".
func (q Query) Encode() string {
	var sb strings.Builder
	for i, e := range q {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(e.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(e.Value))
	}
	return sb.String()
}

// Values converts the query to url.Values.
func (q Query) Values() url.Values {
	v := url.Values{}
	for _, e := range q {
		v.Add(e.Key, e.Value)
	}
	return v
}
