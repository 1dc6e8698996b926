package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"drugdeaths/store"
)

var pgBatchSize int

var pgloadCmd = &cobra.Command{
	Use:   "pgload",
	Short: "Bulk-load the normalized table into PostgreSQL",
	Long: `Creates the deaths and death_substances tables if needed and copies the
normalized table into them in batched transactions. The connection string
comes from postgres.url in the config or EDA_PG_URL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Postgres.URL == "" {
			return errors.New("pgload: no connection string; set postgres.url or EDA_PG_URL")
		}
		if cmd.Flags().Changed("batch-size") {
			cfg.Postgres.BatchSize = pgBatchSize
		}
		t, err := loadTable()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		pool, err := store.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := store.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		stats, err := store.LoadTable(ctx, pool, t, cfg.Postgres.BatchSize, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %s deaths and %s substance rows in %d batches\n",
			humanize.Comma(stats.Deaths), humanize.Comma(stats.Substances), stats.Batches)
		return nil
	},
}

func init() {
	pgloadCmd.Flags().IntVar(&pgBatchSize, "batch-size", 5000, "rows per transaction")
}
