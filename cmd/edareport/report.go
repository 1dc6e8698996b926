package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drugdeaths/loader"
	"drugdeaths/report"
)

var (
	reportFormat string
	reportOut    string
)

var reportCmd = &cobra.Command{
	Use:   "report [section...]",
	Short: "Build the chart report",
	Long: `Builds every configured section, writing <name>.json chart specs and,
unless --format is empty, rendered images into the output directory.
Sections may be named on the command line to build only those.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyReportFlags(cmd)
		t, err := loadTable()
		if err != nil {
			return err
		}
		res, err := runReport(cmd, t, args)
		if err != nil {
			return err
		}
		if n := len(res.Failed()); n > 0 {
			return fmt.Errorf("%d of %d sections failed", n, len(res.Outcomes))
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{reportCmd, watchCmd} {
		c.Flags().StringVarP(&reportFormat, "format", "f", "", "image format: png, svg, pdf or none")
		c.Flags().StringVarP(&reportOut, "out", "o", "", "output directory")
	}
}

func applyReportFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = reportFormat
		if reportFormat == "none" {
			cfg.Output.Format = ""
		}
	}
	if reportOut != "" {
		cfg.Output.Dir = reportOut
	}
}

func runReport(cmd *cobra.Command, t *loader.Table, only []string) (report.Result, error) {
	if len(only) > 0 {
		cfg.Only = only
	}
	if err := cfg.Validate(); err != nil {
		return report.Result{}, err
	}
	sections, err := cfg.ReportSections()
	if err != nil {
		return report.Result{}, err
	}

	start := time.Now()
	runner := report.Runner{Workers: cfg.Output.Workers, Logger: logger}
	res := runner.Run(cmd.Context(), t, sections, report.DirSink{Dir: cfg.Output.Dir, Format: cfg.Output.Format})
	logger.Info("report complete",
		zap.String("dir", cfg.Output.Dir),
		zap.Int("ok", len(res.OK())),
		zap.Int("skipped", len(res.Skipped())),
		zap.Int("failed", len(res.Failed())),
		zap.Duration("elapsed", time.Since(start)))

	out := cmd.OutOrStdout()
	for _, o := range res.Outcomes {
		switch {
		case o.Skipped:
			fmt.Fprintf(out, "%s %s: %v\n", skipStyle.Render("skip"), o.Name, o.Err)
		case o.Err != nil:
			fmt.Fprintf(out, "%s %s: %v\n", failStyle.Render("FAIL"), o.Name, o.Err)
		default:
			fmt.Fprintf(out, "%s %s (%s)\n", titleStyle.Render("ok  "), o.Name, o.Elapsed.Round(time.Millisecond))
		}
	}
	return res, nil
}
