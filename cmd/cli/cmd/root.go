// Package cmd provides the CLI commands for permit-fees.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"permit-fees/core/engine"
	"permit-fees/internal/app"
	"permit-fees/internal/config"
	"permit-fees/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "permit-fees",
	Short: "Estimate development fees for construction projects",
	Long: `permit-fees calculates the impact, permit and utility fees a construction
project owes in a jurisdiction, from a catalog of published fee schedules.

Examples:
  permit-fees calculate --jurisdiction "Denver, CO" --type Residential --units 50
  permit-fees report --project project.yaml
  permit-fees compare --project compare.yaml
  permit-fees catalog import ./catalog`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.permit-fees/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openEngine opens the configured catalog. The caller closes the catalog.
func openEngine(ctx context.Context) (*engine.Engine, *app.Catalog, error) {
	cfg := config.Get()
	c, err := app.OpenCatalog(ctx, cfg, logging.Logger)
	if err != nil {
		return nil, nil, err
	}
	return app.NewEngine(cfg, c, logging.Logger), c, nil
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "permit-fees version %s\n", app.Version)
	},
}
