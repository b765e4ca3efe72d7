package params

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/apigate/pkg/schema"
)

// Values is the caller-supplied params payload, decoded from JSON.
type Values map[string]interface{}

// lookup resolves a logical parameter name through the operation's mappings.
// A nil value counts as not supplied.
func (v Values) lookup(op *schema.Operation, name string) (interface{}, bool) {
	val, ok := v[op.MappedName(name)]
	if !ok || val == nil {
		return nil, false
	}
	return val, true
}

// BuildPath substitutes every PATH parameter into the operation's path
// template. Each substituted value is path-escaped.
func BuildPath(op *schema.Operation, values Values) (string, error) {
	path := op.Path

	for _, p := range op.ParametersIn(schema.LocationPath) {
		placeholder := "{" + p.Name + "}"
		if !strings.Contains(path, placeholder) {
			continue
		}

		val, ok := values.lookup(op, p.Name)
		if !ok {
			return "", NewMissingParameterError(p.Name, op.MappedName(p.Name))
		}

		path = strings.ReplaceAll(path, placeholder, url.PathEscape(stringify(val, ",")))
	}

	return path, nil
}

// BuildQuery serializes QUERY parameters according to their style. Entries
// are emitted in parameter declaration order.
func BuildQuery(op *schema.Operation, values Values) (Query, error) {
	var q Query

	for _, p := range op.ParametersIn(schema.LocationQuery) {
		val, ok := values.lookup(op, p.Name)
		if !ok {
			continue
		}

		switch p.Style {
		case schema.StyleForm:
			if items, isArray := val.([]interface{}); isArray {
				if p.Explode {
					for _, item := range items {
						q.Add(p.Name, stringify(item, ","))
					}
				} else {
					q.Add(p.Name, joinItems(items, ","))
				}
				continue
			}
			q.Add(p.Name, stringify(val, ","))

		case schema.StyleSpaceDelimited:
			q.Add(p.Name, delimited(val, " "))

		case schema.StylePipeDelimited:
			q.Add(p.Name, delimited(val, "|"))

		case schema.StyleDeepObject:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("failed to encode deep object parameter %q: %w", p.Name, err)
			}
			q.Add(p.Name, string(encoded))

		default:
			q.Add(p.Name, stringify(val, ","))
		}
	}

	return q, nil
}

// BuildHeaders serializes HEADER parameters as outbound headers and COOKIE
// parameters into a single Cookie header.
func BuildHeaders(op *schema.Operation, values Values) http.Header {
	h := http.Header{}

	for _, p := range op.ParametersIn(schema.LocationHeader) {
		if val, ok := values.lookup(op, p.Name); ok {
			h.Set(p.Name, stringify(val, ","))
		}
	}

	var cookies []string
	for _, p := range op.ParametersIn(schema.LocationCookie) {
		if val, ok := values.lookup(op, p.Name); ok {
			cookies = append(cookies, (&http.Cookie{Name: p.Name, Value: stringify(val, ",")}).String())
		}
	}
	if len(cookies) > 0 {
		h.Set("Cookie", strings.Join(cookies, "; "))
	}

	return h
}

// BuildBody returns the JSON-encoded request body, or nil when the
// operation takes no body or the caller supplied none.
func BuildBody(op *schema.Operation, values Values) ([]byte, error) {
	if op.RequestBody == nil {
		return nil, nil
	}

	val, ok := values.lookup(op, op.RequestBody.Name)
	if !ok {
		return nil, nil
	}

	body, err := json.Marshal(val)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return body, nil
}

func delimited(val interface{}, sep string) string {
	if items, ok := val.([]interface{}); ok {
		return joinItems(items, sep)
	}
	return stringify(val, sep)
}

func joinItems(items []interface{}, sep string) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = stringify(item, sep)
	}
	return strings.Join(parts, sep)
}

// stringify renders a decoded JSON value the way it appears in a URL.
func stringify(val interface{}, sep string) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case []interface{}:
		return joinItems(v, sep)
	case map[string]interface{}:
		// simple style: k,v,k,v in key order
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(v)*2)
		for _, k := range keys {
			parts = append(parts, k, stringify(v[k], sep))
		}
		return strings.Join(parts, ",")
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
