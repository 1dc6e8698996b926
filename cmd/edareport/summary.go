package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"drugdeaths/loader"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	labelStyle = lipgloss.NewStyle().Width(22).Foreground(lipgloss.Color("#6B7280"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935"))
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print row counts, empty cells and age statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := loadTable()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(cfg.Source, t.Summary()))
		return nil
	},
}

func renderSummary(path string, s loader.Summary) string {
	line := func(label, value string) string {
		return labelStyle.Render(label) + value
	}
	rows := []string{
		titleStyle.Render(path),
		line("records", humanize.Comma(int64(s.Rows))),
		line("geolocated", humanize.Comma(int64(s.Geolocated))),
		line("imputed ages", fmt.Sprintf("%s (fill %d)", humanize.Comma(int64(s.ImputedAges)), s.AgeFill)),
		line("age range", fmt.Sprintf("%d-%d", s.AgeMin, s.AgeMax)),
		line("age mean", fmt.Sprintf("%.1f ± %.1f", s.AgeMean, s.AgeStdDev)),
	}
	if len(s.Nulls) > 0 {
		fields := make([]string, 0, len(s.Nulls))
		for f := range s.Nulls {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		rows = append(rows, "", titleStyle.Render("empty cells"))
		for _, f := range fields {
			rows = append(rows, line(f, humanize.Comma(int64(s.Nulls[f]))))
		}
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}
