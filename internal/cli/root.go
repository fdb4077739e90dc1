// Package cli provides the datasynth command-line interface.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/datasynth/api/internal/config"
	"github.com/datasynth/api/internal/logger"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	verbose bool

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datasynth",
	Short: "Synthesize schema-conformant test data",
	Long: `datasynth generates synthetic records from a declarative table schema and
writes them to CSV, JSON or Parquet files, a relational database, an
S3-compatible bucket or MongoDB.

The same pipeline backs the HTTP API; the CLI runs it in-process without Redis.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logger.Init(level, "")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(tablesCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
