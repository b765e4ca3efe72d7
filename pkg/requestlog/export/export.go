// Package export writes request logs as JSON or CSV.
package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/apigate/pkg/requestlog"
)

// StreamExporter exports from a channel without buffering every log.
type StreamExporter interface {
	requestlog.Exporter
	ExportStream(ctx context.Context, logsCh <-chan *requestlog.RequestLog, w io.Writer) error
}

// ForFormat returns the exporter for "json" or "csv".
func ForFormat(format string, pretty bool) (StreamExporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (valid: json, csv)", format)
	}
}

// Stream queries storage and exports every matching log to w.
func Stream(ctx context.Context, storage requestlog.Storage, query *requestlog.Query, exporter StreamExporter, w io.Writer) error {
	logsCh, errCh, err := storage.QueryStream(ctx, query)
	if err != nil {
		return err
	}

	if err := exporter.ExportStream(ctx, logsCh, w); err != nil {
		// unblock the producer
		for range logsCh {
		}
		return err
	}
	return <-errCh
}
