package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

var envKeys = []string{"EDA_SOURCE", "EDA_OUTPUT_DIR", "EDA_PG_URL", "EDA_RENDER_FORMAT"}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	unsetEnv(t, envKeys...)
	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFile(t *testing.T) {
	unsetEnv(t, envKeys...)
	path := writeFile(t, t.TempDir(), "edareport.yaml", `
source: data/deaths.csv
output:
  dir: out
  format: SVG
only: [deaths_by_year, top_causes]
sections:
  top_causes:
    options:
      title: Causes
      width: 500
  correlation:
    disabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "data/deaths.csv", cfg.Source)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "svg", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Output.Workers, "unset keys keep defaults")
	assert.Equal(t, 5000, cfg.Postgres.BatchSize)

	sections, err := cfg.ReportSections()
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "deaths_by_year", sections[0].Name)
	assert.Equal(t, "top_causes", sections[1].Name)
}

func TestLoadDisabledSectionsAreDropped(t *testing.T) {
	unsetEnv(t, envKeys...)
	path := writeFile(t, t.TempDir(), "edareport.yaml", `
sections:
  correlation:
    disabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	sections, err := cfg.ReportSections()
	require.NoError(t, err)
	for _, s := range sections {
		assert.NotEqual(t, "correlation", s.Name)
	}
	assert.NotEmpty(t, sections)
}

func TestLoadRejectsBadValues(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "a.yaml", "output:\n  format: gif\n"))
	assert.ErrorContains(t, err, "gif")

	_, err = Load(writeFile(t, dir, "b.yaml", "sections:\n  nope: {}\n"))
	assert.ErrorContains(t, err, "nope")

	_, err = Load(writeFile(t, dir, "c.yaml", "only: [nope]\n"))
	assert.ErrorContains(t, err, "nope")

	_, err = Load(writeFile(t, dir, "d.yaml", "source: [\n"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EDA_SOURCE", "env.csv")
	t.Setenv("EDA_OUTPUT_DIR", "env-out")
	t.Setenv("EDA_PG_URL", "postgres://env")
	t.Setenv("EDA_RENDER_FORMAT", "")

	cfg, err := Load(filepath.Join(t.TempDir(), DefaultPath))
	require.NoError(t, err)
	assert.Equal(t, "env.csv", cfg.Source)
	assert.Equal(t, "env-out", cfg.Output.Dir)
	assert.Equal(t, "postgres://env", cfg.Postgres.URL)
	assert.Empty(t, cfg.Output.Format, "empty format means specs only")
}

func TestDotEnvNextToConfig(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "EDA_PG_URL=postgres://dotenv\n")
	path := writeFile(t, dir, "edareport.yaml", "source: file.csv\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://dotenv", cfg.Postgres.URL)
	assert.Equal(t, "file.csv", cfg.Source)
}

func TestDebounceDuration(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDuration())
	cfg.Watch.Debounce = "2s"
	assert.Equal(t, 2*time.Second, cfg.DebounceDuration())
	cfg.Watch.Debounce = "soon"
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDuration())
}
