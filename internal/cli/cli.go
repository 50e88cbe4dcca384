// Package cli implements the command-line interface for aurelion.
package cli

import (
	"github.com/spf13/cobra"

	"aurelion/internal/config"
	"aurelion/internal/logging"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var (
	// Global flags
	cfgFile  string
	logLevel string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "aurelion",
		Short: "Commercial analytics pipeline over retail datasets",
		Long: `aurelion reads four retail datasets (products, customers, sales and
sale lines), validates their schemas, checks referential integrity, cleans
and integrates them into a denormalized fact table, and derives commercial
metrics: monthly average ticket, top products, payment-method share and ABC
classifications.

Results are exported as CSV files and a markdown summary, and can optionally
be persisted to SQLite, Postgres or SQL Server.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./aurelion.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(menuCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("aurelion %s\n", Version)
	},
}

// pipelineLogger adapts the global zerolog logger to the pipeline's Printf
// seam.
type pipelineLogger struct{}

func (pipelineLogger) Printf(format string, v ...any) {
	logging.Info().Msgf(format, v...)
}
