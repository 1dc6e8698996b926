package chart

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Options are the settings every builder accepts. Zero values mean "use the
// chart type's default".
type Options struct {
	Title      string `yaml:"title"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	ShowLegend *bool  `yaml:"show_legend"`
	LabelAngle *int   `yaml:"label_angle"`
}

func (o Options) resolve(width, height, angle int, title string) resolved {
	r := resolved{
		title:  o.Title,
		width:  o.Width,
		height: o.Height,
		legend: true,
		angle:  angle,
	}
	if r.title == "" {
		r.title = title
	}
	if r.width <= 0 {
		r.width = width
	}
	if r.height <= 0 {
		r.height = height
	}
	if o.ShowLegend != nil {
		r.legend = *o.ShowLegend
	}
	if o.LabelAngle != nil {
		r.angle = *o.LabelAngle
	}
	return r
}

type resolved struct {
	title         string
	width, height int
	legend        bool
	angle         int
}

// LineOptions configure BuildLine. Defaults: 800x400, title "<y> by <x>".
type LineOptions struct {
	Options `yaml:",inline"`
	// Total overlays a "Total" series summing y per x over the input rows.
	Total bool `yaml:"total"`
}

// Sort policies for bar categories.
const (
	SortDescending = "-y"
	SortAscending  = "y"
	SortNone       = "none"
)

// BarOptions configure BuildBar. Defaults: 700x400, vertical, sorted by
// descending value, labels on.
type BarOptions struct {
	Options    `yaml:",inline"`
	Horizontal bool `yaml:"horizontal"`
	// Sort is "-y"/"-x" for descending value, "y"/"x" for ascending value,
	// "none" for input order, or a comma-separated list of categories.
	Sort string `yaml:"sort"`
	// Order, when set, overrides Sort with an explicit category order.
	// Categories not listed follow in input order.
	Order  []string `yaml:"order"`
	Labels *bool    `yaml:"labels"`
}

// PieOptions configure BuildPie. Defaults: 600x300, inner radius 50, a
// centered grand total.
type PieOptions struct {
	Options     `yaml:",inline"`
	InnerRadius *int  `yaml:"inner_radius"`
	ShowTotal   *bool `yaml:"show_total"`
}

// HeatmapOptions configure BuildHeatmap. Defaults: 800x400, viridis.
type HeatmapOptions struct {
	Options `yaml:",inline"`
	Scheme  string `yaml:"scheme"`
}

// BoxplotOptions configure BuildBoxplot. Defaults: 800x500, labels at -30
// degrees.
type BoxplotOptions struct {
	Options `yaml:",inline"`
}

// OptionsFromMap decodes a loosely typed options bag, as found in
// configuration files, into one of the typed option structs. Unrecognized
// keys are ignored.
func OptionsFromMap[T any](m map[string]any) (T, error) {
	var zero T
	return MergeOptions(zero, m)
}

// MergeOptions overlays the keys present in m onto base. Keys absent from m
// keep base's values.
func MergeOptions[T any](base T, m map[string]any) (T, error) {
	if len(m) == 0 {
		return base, nil
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return base, fmt.Errorf("encode chart options: %w", err)
	}
	out := base
	if err := yaml.Unmarshal(b, &out); err != nil {
		return base, fmt.Errorf("decode chart options: %w", err)
	}
	return out, nil
}
