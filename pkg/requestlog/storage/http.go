package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/telemetry/tracing"
)

// HTTPSink delivers request logs to a remote logs service with
// POST {endpoint}/logs/{projectID}.
type HTTPSink struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHTTPSink creates a sink for the logs service at endpoint. A nil
// client gets one with the given timeout.
func NewHTTPSink(endpoint, token string, timeout time.Duration, client *http.Client) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPSink{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   client,
	}
}

// Write implements requestlog.Sink.
func (s *HTTPSink) Write(ctx context.Context, projectID string, log *requestlog.RequestLog) error {
	body, err := json.Marshal(log)
	if err != nil {
		return requestlog.NewRecorderError(log.ID, fmt.Errorf("encode request log: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.endpoint+"/logs/"+url.PathEscape(projectID), bytes.NewReader(body))
	if err != nil {
		return requestlog.NewRecorderError(log.ID, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := s.client.Do(req)
	if err != nil {
		return requestlog.NewRecorderError(log.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return requestlog.NewRecorderError(log.ID, requestlog.NewIngestError(resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
