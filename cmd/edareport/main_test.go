package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drugdeaths/registry"
	"drugdeaths/report"
	"drugdeaths/store"
)

func writeDataset(t *testing.T, dir string) string {
	t.Helper()
	header := append([]string{
		"ID", "Date", "Age", "Sex", "Race", "Death City", "Death County",
		"Location", "Cause of Death", "DeathCityGeo",
	}, registry.Columns()...)
	rows := [][]string{
		{"12-0001", "01/06/2020", "20", "Male", "White", "HARTFORD", "HARTFORD", "Residence", "Fentanyl", "Hartford, CT\n(41.76, -72.69)"},
		{"12-0002", "05/17/2019", "34", "Female", "Black", "NEW HAVEN", "NEW HAVEN", "Hospital", "Cocaine", ""},
		{"12-0003", "12/31/2021", "47", "Male", "White", "HARTFORD", "HARTFORD", "Residence", "Fentanyl", "Hartford, CT\n(41.76, -72.69)"},
		{"12-0004", "07/04/2020", "", "Female", "", "BRIDGEPORT", "FAIRFIELD", "Other", "Heroin", ""},
	}
	drugs := [][]string{{"Heroin", "Fentanyl"}, {"Cocaine"}, {"Fentanyl"}, {"Heroin"}}

	path := filepath.Join(dir, "drug_deaths.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	for i, row := range rows {
		marked := map[string]bool{}
		for _, d := range drugs[i] {
			marked[d] = true
		}
		for _, c := range registry.Columns() {
			if marked[c] {
				row = append(row, "Y")
			} else {
				row = append(row, "")
			}
		}
		require.NoError(t, w.Write(row))
	}
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, f.Close())
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	for _, k := range []string{"EDA_SOURCE", "EDA_OUTPUT_DIR", "EDA_PG_URL", "EDA_RENDER_FORMAT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	source, reportFormat, reportOut = "", "", ""
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)
	out, err := execute(t, "summary", "-c", filepath.Join(dir, "none.yaml"), "-s", data)
	require.NoError(t, err)
	assert.Contains(t, out, "records")
	assert.Contains(t, out, "geolocated")
}

func TestReportCommandWritesEverySection(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)
	outDir := filepath.Join(dir, "charts")

	out, err := execute(t, "report", "-c", filepath.Join(dir, "none.yaml"), "-s", data, "-o", outDir, "-f", "none")
	require.NoError(t, err, out)
	for _, name := range report.SectionNames() {
		assert.FileExists(t, filepath.Join(outDir, name+".json"))
		assert.NoFileExists(t, filepath.Join(outDir, name+".png"))
	}
}

func TestReportCommandNamedSections(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)
	outDir := filepath.Join(dir, "charts")

	_, err := execute(t, "report", "-c", filepath.Join(dir, "none.yaml"), "-s", data, "-o", outDir, "-f", "svg", "sex_distribution")
	require.NoError(t, err)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"sex_distribution.json", "sex_distribution.svg"}, names)

	_, err = execute(t, "report", "-c", filepath.Join(dir, "none.yaml"), "-s", data, "-o", outDir, "bogus")
	assert.ErrorContains(t, err, "bogus")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	data := writeDataset(t, dir)
	cfgPath := filepath.Join(dir, "none.yaml")

	pq := filepath.Join(dir, "deaths.parquet")
	out, err := execute(t, "export", "-c", cfgPath, "-s", data, pq)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 4 rows")
	records, err := store.ReadParquet(pq)
	require.NoError(t, err)
	assert.Len(t, records, 4)

	csvPath := filepath.Join(dir, "deaths.csv")
	_, err = execute(t, "export", "-c", cfgPath, "-s", data, csvPath)
	require.NoError(t, err)
	assert.FileExists(t, csvPath)

	_, err = execute(t, "export", "-c", cfgPath, "-s", data, filepath.Join(dir, "deaths.xlsx"))
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestPgloadRequiresURL(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "pgload", "-c", filepath.Join(dir, "none.yaml"), "-s", writeDataset(t, dir))
	assert.ErrorContains(t, err, "EDA_PG_URL")
}

func TestMissingDatasetFails(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "summary", "-c", filepath.Join(dir, "none.yaml"), "-s", filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}
