package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	in, verr := ParseInput([]byte(`{"endpoint":{"clientId":"c","id":"op"},"params":{"id":12345678901234567890,"q":"x"}}`))
	require.Nil(t, verr)
	assert.Equal(t, "c", in.Endpoint.ClientID)
	assert.Equal(t, "op", in.Endpoint.ID)
	assert.Equal(t, json.Number("12345678901234567890"), in.Params["id"])
	assert.JSONEq(t, `{"id":12345678901234567890,"q":"x"}`, string(in.RawParams))
}

func TestParseInputDefaultsParams(t *testing.T) {
	for _, body := range []string{
		`{"endpoint":{"clientId":"c","id":"op"}}`,
		`{"endpoint":{"clientId":"c","id":"op"},"params":null}`,
	} {
		in, verr := ParseInput([]byte(body))
		require.Nil(t, verr)
		assert.Empty(t, in.Params)
		assert.Equal(t, "{}", string(in.RawParams))
	}
}

func TestParseInputErrors(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`not json`, ""},
		{`[]`, ""},
		{`{}`, "endpoint"},
		{`{"endpoint":"x"}`, "endpoint"},
		{`{"endpoint":{"id":"op"}}`, "endpoint.clientId"},
		{`{"endpoint":{"clientId":"c","id":""}}`, "endpoint.id"},
		{`{"endpoint":{"clientId":"c","id":7}}`, "endpoint.id"},
		{`{"endpoint":{"clientId":"c","id":"op"},"params":"x"}`, "params"},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			_, verr := ParseInput([]byte(tt.body))
			require.NotNil(t, verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, 400, verr.ToErrorResponse().HTTPStatusCode())
		})
	}
}
