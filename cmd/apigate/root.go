package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/apigate/pkg/cli"
	"mercator-hq/apigate/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "apigate",
	Short: "apigate - API gateway with request logging",
	Long: `apigate runs catalogued API operations on behalf of projects.

A gateway call names an HTTP client and an operation; apigate authenticates
the project key, injects the project's stored credentials, dispatches the
request to the origin through a shared HTTP cache, relays the response and
records a request log.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and APIGATE_* variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the configuration named by --config with environment
// overrides.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return config.MustGetConfig(), nil
}
