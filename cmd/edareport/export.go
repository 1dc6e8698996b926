package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drugdeaths/loader"
	"drugdeaths/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <file.parquet|file.csv>",
	Short: "Write the normalized table as Parquet or CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		t, err := loadTable()
		if err != nil {
			return err
		}

		var n int
		switch strings.ToLower(filepath.Ext(path)) {
		case ".parquet":
			n, err = store.WriteParquet(t, path)
		case ".csv":
			n, err = writeCSV(t, path)
		default:
			return fmt.Errorf("export: unsupported file type %q", filepath.Ext(path))
		}
		if err != nil {
			return err
		}

		var size uint64
		if info, err := os.Stat(path); err == nil {
			size = uint64(info.Size())
		}
		logger.Info("export complete", zap.String("path", path), zap.Int("rows", n))
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s rows to %s (%s)\n", humanize.Comma(int64(n)), path, humanize.Bytes(size))
		return nil
	},
}

// writeCSV writes the normalized table to path.
func writeCSV(t *loader.Table, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create csv: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return t.Len(), f.Close()
}
