package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"mercator-hq/apigate/pkg/params"
	"mercator-hq/apigate/pkg/proxy/types"
)

// Endpoint names the operation to call.
type Endpoint struct {
	ClientID string `json:"clientId"`
	ID       string `json:"id"`
}

// Input is a validated /gateway/run body.
type Input struct {
	Endpoint Endpoint      `json:"endpoint"`
	Params   params.Values `json:"params"`

	// RawParams is the params object as sent, or "{}" when omitted.
	RawParams json.RawMessage `json:"-"`
}

// ValidationError describes why an inbound body was rejected.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ToErrorResponse converts the error to a 400 envelope.
func (e *ValidationError) ToErrorResponse() *types.ErrorResponse {
	code := types.CodeInvalidRequest
	if e.Field == "" {
		code = types.CodeInvalidJSON
	}
	return types.NewInvalidRequestError(code, e.Error())
}

// ParseInput validates body as {endpoint: {clientId, id}, params}. Numbers
// in params keep their original text.
func ParseInput(body []byte) (*Input, *ValidationError) {
	if !gjson.ValidBytes(body) {
		return nil, &ValidationError{Message: "request body must be valid JSON"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &ValidationError{Message: "request body must be a JSON object"}
	}

	endpoint := root.Get("endpoint")
	if !endpoint.IsObject() {
		return nil, &ValidationError{Field: "endpoint", Message: "must be an object"}
	}
	for _, field := range []string{"clientId", "id"} {
		v := endpoint.Get(field)
		if v.Type != gjson.String || v.Str == "" {
			return nil, &ValidationError{Field: "endpoint." + field, Message: "must be a non-empty string"}
		}
	}

	rawParams := json.RawMessage("{}")
	if p := root.Get("params"); p.Exists() && p.Type != gjson.Null {
		if !p.IsObject() {
			return nil, &ValidationError{Field: "params", Message: "must be an object"}
		}
		rawParams = json.RawMessage(p.Raw)
	}

	in := &Input{
		Endpoint: Endpoint{
			ClientID: endpoint.Get("clientId").Str,
			ID:       endpoint.Get("id").Str,
		},
		RawParams: rawParams,
	}

	dec := json.NewDecoder(bytes.NewReader(rawParams))
	dec.UseNumber()
	if err := dec.Decode(&in.Params); err != nil {
		return nil, &ValidationError{Field: "params", Message: err.Error()}
	}
	if in.Params == nil {
		in.Params = params.Values{}
	}

	return in, nil
}
