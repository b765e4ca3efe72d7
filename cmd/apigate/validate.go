package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/apigate/pkg/catalog"
	"mercator-hq/apigate/pkg/cli"
)

var validateFlags struct {
	catalogPath string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and catalog",
	Long: `Load the configuration and the catalog it points at and report every
problem found, without opening any backend.

Examples:
  apigate validate --config config.yaml
  apigate validate --catalog ./catalog.yaml`,
	RunE: validateAll,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.catalogPath, "catalog", "", "catalog file (overrides catalog.path)")
}

func validateAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "✓ Configuration valid")

	path := cfg.Catalog.Path
	if validateFlags.catalogPath != "" {
		path = validateFlags.catalogPath
	}
	return validateCatalog(cmd, path)
}

func validateCatalog(cmd *cobra.Command, path string) error {
	c, err := catalog.Load(path)
	if err != nil {
		return cli.NewConfigError("catalog", err.Error())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Catalog %s valid (%d projects)\n", path, len(c.ProjectIDs()))
	return nil
}
