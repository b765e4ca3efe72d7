package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/apigate/pkg/cli"
	"mercator-hq/apigate/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway server",
	Long: `Start the gateway server with the specified configuration.

The server accepts gateway calls on POST /gateway/run, serves the request-log
API under /logs and exposes /health, /ready and /metrics.

Examples:
  # Start with defaults and APIGATE_* environment overrides
  apigate run

  # Start with a config file
  apigate run --config /etc/apigate/config.yaml

  # Override the listen address
  apigate run --listen 0.0.0.0:8080

  # Build every component without serving
  apigate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "wire all components and exit without serving")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Logs.Recorder.GracePeriod+cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(closeCtx); err != nil {
			slog.Error("shutdown incomplete", "error", err)
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "apigate v%s\n", Version)
	fmt.Fprintf(out, "✓ Catalog loaded (%d projects)\n", len(a.catalog.ProjectIDs()))
	if a.storage != nil {
		fmt.Fprintf(out, "✓ Request logs stored in %s backend\n", cfg.Logs.Storage.Backend)
	} else {
		fmt.Fprintf(out, "✓ Request logs sent to %s\n", cfg.Logs.Endpoint)
	}

	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	fmt.Fprintf(out, "✓ Listening on %s (Ctrl+C to stop)\n", cfg.Server.ListenAddress)
	if err := a.run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
