package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drugdeaths/internal/watch"
	"drugdeaths/loader"
)

var watchCmd = &cobra.Command{
	Use:   "watch [section...]",
	Short: "Rebuild the report whenever the dataset changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyReportFlags(cmd)
		cache := loader.NewCache(logger)

		rebuild := func(ctx context.Context) {
			t, err := cache.Load(cfg.Source)
			if err != nil {
				// a half-written file fails to parse; the next write retries
				logger.Error("reload failed", zap.Error(err))
				return
			}
			if _, err := runReport(cmd, t, args); err != nil {
				logger.Error("report failed", zap.Error(err))
			}
		}
		rebuild(cmd.Context())

		w := &watch.File{
			Path:     cfg.Source,
			Debounce: cfg.DebounceDuration(),
			Logger:   logger,
			OnChange: rebuild,
		}
		return w.Run(cmd.Context())
	},
}
