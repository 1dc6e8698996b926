// Package config loads edareport settings from a YAML file, a .env file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"drugdeaths/render"
	"drugdeaths/report"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "edareport.yaml"

// Config holds all edareport settings.
type Config struct {
	// Source is the drug deaths CSV.
	Source string `yaml:"source"`

	Output   OutputConfig   `yaml:"output"`
	Postgres PostgresConfig `yaml:"postgres"`
	Watch    WatchConfig    `yaml:"watch"`

	// Only lists the sections to build, in order. Empty means all.
	Only []string `yaml:"only"`

	// Sections holds per-section overrides keyed by section name.
	Sections map[string]SectionConfig `yaml:"sections"`
}

// OutputConfig says where and how charts are written.
type OutputConfig struct {
	Dir     string `yaml:"dir"`
	Format  string `yaml:"format"` // png, svg, pdf or empty for specs only
	Workers int    `yaml:"workers"`
}

// PostgresConfig configures the pgload command.
type PostgresConfig struct {
	URL       string `yaml:"url"`
	BatchSize int    `yaml:"batch_size"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// SectionConfig overrides one report section.
type SectionConfig struct {
	Disabled bool           `yaml:"disabled"`
	Options  map[string]any `yaml:"options"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Source: "drug_deaths.csv",
		Output: OutputConfig{
			Dir:     "charts",
			Format:  "png",
			Workers: 4,
		},
		Postgres: PostgresConfig{
			BatchSize: 5000,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load reads the config file at path, falling back to defaults when it does
// not exist, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env sits next to the config file; a missing one is fine.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("EDA_SOURCE"); v != "" {
		c.Source = v
	}
	if v := os.Getenv("EDA_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("EDA_PG_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v, ok := os.LookupEnv("EDA_RENDER_FORMAT"); ok {
		c.Output.Format = v
	}
}

// Validate checks the format and section names.
func (c *Config) Validate() error {
	c.Output.Format = strings.ToLower(strings.TrimPrefix(c.Output.Format, "."))
	if f := c.Output.Format; f != "" {
		ok := false
		for _, known := range render.Formats {
			ok = ok || f == known
		}
		if !ok {
			return fmt.Errorf("config: unsupported render format %q", f)
		}
	}
	known := map[string]bool{}
	for _, n := range report.SectionNames() {
		known[n] = true
	}
	for name := range c.Sections {
		if !known[name] {
			return fmt.Errorf("config: unknown section %q", name)
		}
	}
	for _, name := range c.Only {
		if !known[name] {
			return fmt.Errorf("config: unknown section %q", name)
		}
	}
	return nil
}

// ReportSections returns the configured sections in order, with disabled
// ones dropped and option overrides applied.
func (c *Config) ReportSections() ([]report.Section, error) {
	opts := report.Options{}
	for name, sc := range c.Sections {
		if len(sc.Options) > 0 {
			opts[name] = sc.Options
		}
	}
	sections, err := report.Select(report.Configure(opts), c.Only...)
	if err != nil {
		return nil, err
	}
	out := sections[:0:0]
	for _, s := range sections {
		if !c.Sections[s.Name].Disabled {
			out = append(out, s)
		}
	}
	return out, nil
}

// DebounceDuration parses Watch.Debounce, defaulting to 500ms.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}
