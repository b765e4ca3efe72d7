package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/export"
)

// OutputFormat selects how commands print request logs.
type OutputFormat string

const (
	// FormatText is an aligned table, one log per row.
	FormatText OutputFormat = "text"
	// FormatJSON is a JSON array of logs.
	FormatJSON OutputFormat = "json"
	// FormatCSV is the export CSV layout.
	FormatCSV OutputFormat = "csv"
)

// Formatter prints request logs.
type Formatter interface {
	FormatLogs(w io.Writer, logs []*requestlog.RequestLog) error
}

// TextFormatter prints a summary table.
type TextFormatter struct{}

// FormatLogs implements Formatter.
func (f *TextFormatter) FormatLogs(w io.Writer, logs []*requestlog.RequestLog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tCLIENT\tOPERATION\tMETHOD\tSTATUS\tCACHE\tDURATION\tPATH")
	for _, log := range logs {
		cache := "MISS"
		if log.IsCacheHit {
			cache = "HIT"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%sms\t%s\n",
			log.ID,
			log.CreatedAt.UTC().Format(time.RFC3339),
			log.ClientID,
			log.OperationID,
			log.Method,
			log.StatusCode,
			cache,
			strconv.FormatFloat(log.RequestDuration, 'f', 1, 64),
			pathWithSearch(log),
		)
	}
	fmt.Fprintf(tw, "\n%d log(s)\n", len(logs))
	return tw.Flush()
}

// JSONFormatter prints logs as an indented JSON array.
type JSONFormatter struct {
	Indent bool
}

// FormatLogs implements Formatter.
func (f *JSONFormatter) FormatLogs(w io.Writer, logs []*requestlog.RequestLog) error {
	if logs == nil {
		logs = []*requestlog.RequestLog{}
	}
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(logs)
}

// CSVFormatter prints logs in the export CSV layout.
type CSVFormatter struct{}

// FormatLogs implements Formatter.
func (f *CSVFormatter) FormatLogs(w io.Writer, logs []*requestlog.RequestLog) error {
	return export.NewCSVExporter(true).Export(context.Background(), logs, w)
}

// NewFormatter returns the formatter for format.
func NewFormatter(format OutputFormat) (Formatter, error) {
	switch format {
	case FormatText, "":
		return &TextFormatter{}, nil
	case FormatJSON:
		return &JSONFormatter{Indent: true}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (valid: text, json, csv)", format)
	}
}

func pathWithSearch(log *requestlog.RequestLog) string {
	if log.Search == "" {
		return log.Path
	}
	return log.Path + "?" + log.Search
}
