package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/apigate/pkg/cli"
	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/export"
	"mercator-hq/apigate/pkg/requestlog/retention"
	"mercator-hq/apigate/pkg/requestlog/storage"
)

var logsFlags struct {
	project   string
	client    string
	method    string
	status    string
	code      int
	cacheHit  string
	timeRange string
	limit     int
	offset    int
	sort      string
	format    string
	output    string
	pretty    bool
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and maintain stored request logs",
	Long: `Read request logs from the configured local storage.

Subcommands:
  query   - List logs with filters
  get     - Show one log
  export  - Stream matching logs as JSON or CSV
  prune   - Apply the retention policy now

Time Range Format:
  RFC3339 interval "start/end", e.g. "2026-01-01T00:00:00Z/2026-01-02T00:00:00Z"`,
}

var logsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List request logs",
	Long: `List request logs, newest first.

Examples:
  apigate logs query --project proj_1
  apigate logs query --project proj_1 --status error --format json
  apigate logs query --client github --cache-hit true --limit 20`,
	RunE: queryLogs,
}

var logsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one request log",
	Args:  cobra.ExactArgs(1),
	RunE:  getLog,
}

var logsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export request logs",
	Long: `Stream matching request logs as a JSON array or CSV.

Examples:
  apigate logs export --project proj_1 --format csv -o logs.csv
  apigate logs export --time-range "2026-01-01T00:00:00Z/2026-01-02T00:00:00Z"`,
	RunE: exportLogs,
}

var logsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete logs outside the retention policy",
	RunE:  pruneLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsQueryCmd, logsGetCmd, logsExportCmd, logsPruneCmd)

	logsCmd.PersistentFlags().StringVar(&logsFlags.project, "project", "", "filter by project ID")

	for _, c := range []*cobra.Command{logsQueryCmd, logsExportCmd} {
		c.Flags().StringVar(&logsFlags.client, "client", "", "filter by HTTP client ID")
		c.Flags().StringVar(&logsFlags.method, "method", "", "filter by HTTP method")
		c.Flags().StringVar(&logsFlags.status, "status", "", "filter by outcome: success, error")
		c.Flags().IntVar(&logsFlags.code, "status-code", 0, "filter by exact status code")
		c.Flags().StringVar(&logsFlags.cacheHit, "cache-hit", "", "filter by cache hit: true, false")
		c.Flags().StringVar(&logsFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&logsFlags.sort, "sort", "desc", "sort by creation time: asc, desc")
		c.Flags().StringVarP(&logsFlags.output, "output", "o", "", "output file (default: stdout)")
	}

	logsQueryCmd.Flags().IntVar(&logsFlags.limit, "limit", 0, "max results (default from logs.query.default_limit)")
	logsQueryCmd.Flags().IntVar(&logsFlags.offset, "offset", 0, "pagination offset")
	logsQueryCmd.Flags().StringVar(&logsFlags.format, "format", "text", "output format: text, json, csv")

	logsGetCmd.Flags().StringVar(&logsFlags.format, "format", "json", "output format: text, json, csv")

	logsExportCmd.Flags().StringVar(&logsFlags.format, "format", "json", "export format: json, csv")
	logsExportCmd.Flags().BoolVar(&logsFlags.pretty, "pretty", false, "indent JSON output")
}

// openLogStorage opens the local log store named by the configuration.
func openLogStorage() (*config.Config, requestlog.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Logs.Mode == "remote" {
		return nil, nil, cli.NewConfigError("logs.mode", "logs are stored remotely; query the logs service instead")
	}
	store, err := storage.New(cfg.Logs.Storage)
	if err != nil {
		return nil, nil, cli.NewCommandError("logs", fmt.Errorf("failed to open log storage: %w", err))
	}
	return cfg, store, nil
}

// buildQuery turns the filter flags into a Query.
func buildQuery() (*requestlog.Query, error) {
	query := &requestlog.Query{
		ProjectID:  logsFlags.project,
		ClientID:   logsFlags.client,
		Method:     logsFlags.method,
		Status:     logsFlags.status,
		StatusCode: logsFlags.code,
		Limit:      logsFlags.limit,
		Offset:     logsFlags.offset,
		SortOrder:  logsFlags.sort,
	}

	if logsFlags.cacheHit != "" {
		switch logsFlags.cacheHit {
		case "true":
			hit := true
			query.CacheHit = &hit
		case "false":
			hit := false
			query.CacheHit = &hit
		default:
			return nil, fmt.Errorf("invalid --cache-hit %q (expected true or false)", logsFlags.cacheHit)
		}
	}

	if logsFlags.timeRange != "" {
		start, end, err := parseTimeRange(logsFlags.timeRange)
		if err != nil {
			return nil, err
		}
		query.StartTime, query.EndTime = &start, &end
	}

	return query, nil
}

func parseTimeRange(s string) (time.Time, time.Time, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	start, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

// outputWriter returns stdout or the --output file.
func outputWriter(cmd *cobra.Command) (io.Writer, func() error, error) {
	if logsFlags.output == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(logsFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func queryLogs(cmd *cobra.Command, args []string) error {
	cfg, store, err := openLogStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildQuery()
	if err != nil {
		return err
	}
	if err := query.Validate(cfg.Logs.Query.MaxLimit); err != nil {
		return err
	}
	query.ApplyDefaults(cfg.Logs.Query.DefaultLimit)

	formatter, err := cli.NewFormatter(cli.OutputFormat(logsFlags.format))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logs, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("logs query", err)
	}

	w, closeOut, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	if err := formatter.FormatLogs(w, logs); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

func getLog(cmd *cobra.Command, args []string) error {
	_, store, err := openLogStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	if logsFlags.project == "" {
		return fmt.Errorf("--project is required")
	}

	log, err := store.Get(cmd.Context(), logsFlags.project, args[0])
	if err != nil {
		return cli.NewCommandError("logs get", err)
	}

	formatter, err := cli.NewFormatter(cli.OutputFormat(logsFlags.format))
	if err != nil {
		return err
	}
	return formatter.FormatLogs(cmd.OutOrStdout(), []*requestlog.RequestLog{log})
}

func exportLogs(cmd *cobra.Command, args []string) error {
	_, store, err := openLogStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	query, err := buildQuery()
	if err != nil {
		return err
	}
	if err := query.Validate(0); err != nil {
		return err
	}
	query.ApplyDefaults(requestlog.MaxLimit)

	exporter, err := export.ForFormat(logsFlags.format, logsFlags.pretty)
	if err != nil {
		return err
	}

	w, closeOut, err := outputWriter(cmd)
	if err != nil {
		return err
	}
	if err := export.Stream(cmd.Context(), store, query, exporter, w); err != nil {
		_ = closeOut()
		return cli.NewCommandError("logs export", err)
	}
	return closeOut()
}

func pruneLogs(cmd *cobra.Command, args []string) error {
	cfg, store, err := openLogStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	pruner := retention.NewPruner(store, cfg.Logs.Retention, nil)
	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("logs prune", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d request log(s)\n", deleted)
	return nil
}
