package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/apigate/pkg/requestlog"
)

// JSONExporter writes request logs as a JSON array.
type JSONExporter struct {
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export implements requestlog.Exporter. The output is always an array.
func (e *JSONExporter) Export(_ context.Context, logs []*requestlog.RequestLog, w io.Writer) error {
	if logs == nil {
		logs = []*requestlog.RequestLog{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(logs, "", "  ")
	} else {
		data, err = json.Marshal(logs)
	}
	if err != nil {
		return requestlog.NewExportError("json", len(logs), err)
	}

	if _, err := w.Write(data); err != nil {
		return requestlog.NewExportError("json", len(logs), err)
	}
	return nil
}

// ExportStream writes logs from logsCh as a JSON array without holding
// them all in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, logsCh <-chan *requestlog.RequestLog, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return requestlog.NewExportError("json", 0, err)
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case log, ok := <-logsCh:
			if !ok {
				closing := "]"
				if e.Pretty && count > 0 {
					closing = "\n]"
				}
				if _, err := io.WriteString(w, closing); err != nil {
					return requestlog.NewExportError("json", count, err)
				}
				return nil
			}

			sep := ","
			if count == 0 {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}

			data, err := e.marshal(log)
			if err != nil {
				return requestlog.NewExportError("json", count, err)
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return requestlog.NewExportError("json", count, err)
			}
			if _, err := w.Write(data); err != nil {
				return requestlog.NewExportError("json", count, err)
			}
			count++
		}
	}
}

func (e *JSONExporter) marshal(log *requestlog.RequestLog) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(log, "  ", "  ")
	}
	return json.Marshal(log)
}
