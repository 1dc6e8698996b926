// Command edareport loads the accidental drug deaths dataset and produces the
// exploratory chart report, Parquet/CSV exports and a PostgreSQL load.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drugdeaths/internal/config"
	"drugdeaths/internal/logging"
	"drugdeaths/loader"
)

var (
	// Global flags
	configPath string
	verbose    bool
	source     string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "edareport",
	Short: "Exploratory analysis of accidental drug related deaths",
	Long: `edareport normalizes the accidental drug related deaths CSV and
builds a fixed set of chart specifications from it.

Settings come from edareport.yaml (or --config), a .env file next to it and
EDA_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(verbose)
		if err != nil {
			return err
		}
		logger = logging.WithRun(logger, uuid.NewString())

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if source != "" {
			cfg.Source = source
		}
		logger.Debug("config loaded", zap.String("path", configPath), zap.String("source", cfg.Source))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&source, "source", "s", "", "dataset CSV (overrides config)")

	rootCmd.AddCommand(summaryCmd, reportCmd, exportCmd, pgloadCmd, watchCmd)
}

// loadTable loads cfg.Source, logging the outcome.
func loadTable() (*loader.Table, error) {
	t, err := loader.Load(cfg.Source)
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", zap.String("path", cfg.Source), zap.Int("rows", t.Len()))
	return t, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
