package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"mercator-hq/apigate/pkg/requestlog"
)

// CSVExporter writes request logs as CSV, one row per log. Header maps
// and bodies are embedded as JSON strings.
type CSVExporter struct {
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Columns is the CSV header row.
var Columns = []string{
	"id", "project_id", "client_id", "operation_id",
	"created_at", "method", "status_code", "base_url", "path", "search",
	"is_cache_hit", "response_size", "request_duration_ms", "gateway_duration_ms",
	"request_headers", "response_headers", "request_body", "response_body",
}

// Export implements requestlog.Exporter.
func (e *CSVExporter) Export(_ context.Context, logs []*requestlog.RequestLog, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Columns); err != nil {
			return requestlog.NewExportError("csv", len(logs), err)
		}
	}
	for _, log := range logs {
		if err := writer.Write(row(log)); err != nil {
			return requestlog.NewExportError("csv", len(logs), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return requestlog.NewExportError("csv", len(logs), err)
	}
	return nil
}

// ExportStream writes logs from logsCh, flushing every 100 rows.
func (e *CSVExporter) ExportStream(ctx context.Context, logsCh <-chan *requestlog.RequestLog, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Columns); err != nil {
			return requestlog.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case log, ok := <-logsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return requestlog.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(row(log)); err != nil {
				return requestlog.NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return requestlog.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func row(log *requestlog.RequestLog) []string {
	formatJSON := func(v interface{}) string {
		data, _ := json.Marshal(v)
		return string(data)
	}
	formatFloat := func(f float64) string {
		return strconv.FormatFloat(f, 'f', 3, 64)
	}

	return []string{
		log.ID,
		log.ProjectID,
		log.ClientID,
		log.OperationID,
		log.CreatedAt.UTC().Format(time.RFC3339Nano),
		log.Method,
		strconv.Itoa(log.StatusCode),
		log.BaseURL,
		log.Path,
		log.Search,
		strconv.FormatBool(log.IsCacheHit),
		strconv.FormatInt(log.ResponseSize, 10),
		formatFloat(log.RequestDuration),
		formatFloat(log.GatewayDuration),
		formatJSON(log.RequestHeaders),
		formatJSON(log.ResponseHeaders),
		string(log.RequestBody),
		string(log.ResponseBody),
	}
}
