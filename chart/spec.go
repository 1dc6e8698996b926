// Package chart builds declarative, renderer-agnostic chart specifications
// from already-aggregated frames.
//
// Builders never modify their input frame. A Spec carries its own data, the
// mapping of fields to visual channels, the scale policy, hover selections
// and optional annotation layers. The JSON form follows Vega-Lite naming
// closely enough for a Vega-Lite renderer to consume with light adaptation.
package chart

import (
	"encoding/json"
	"os"

	"drugdeaths/frame"
)

// Mark is the graphical primitive of a chart or layer.
type Mark string

const (
	MarkLine    Mark = "line"
	MarkBar     Mark = "bar"
	MarkArc     Mark = "arc"
	MarkRect    Mark = "rect"
	MarkBoxplot Mark = "boxplot"
	MarkPoint   Mark = "point"
	MarkRule    Mark = "rule"
	MarkText    Mark = "text"
)

// FieldType is the measurement type of an encoded field.
type FieldType string

const (
	Nominal      FieldType = "nominal"
	Ordinal      FieldType = "ordinal"
	Quantitative FieldType = "quantitative"
)

// Role names what an annotation or interaction layer is for.
type Role string

const (
	RoleHoverPoints Role = "hover-points"
	RoleHoverRule   Role = "hover-rule"
	RoleLabels      Role = "labels"
	RoleTotal       Role = "total"
	RoleSliceLabels Role = "slice-labels"
	RoleCenterTotal Role = "center-total"
)

// Scale fixes the mapping from data values to a visual range. Either Domain
// and Range are both set, or Scheme names a continuous or categorical
// palette.
type Scale struct {
	Domain []string `json:"domain,omitempty"`
	Range  []string `json:"range,omitempty"`
	Scheme string   `json:"scheme,omitempty"`
}

// Channel binds a field (or a constant Value) to a visual channel.
type Channel struct {
	Field      string    `json:"field,omitempty"`
	Type       FieldType `json:"type,omitempty"`
	Title      string    `json:"title,omitempty"`
	Sort       []string  `json:"sort,omitempty"`
	Scale      *Scale    `json:"scale,omitempty"`
	Legend     *bool     `json:"legend,omitempty"`
	LabelAngle *int      `json:"labelAngle,omitempty"`
	Format     string    `json:"format,omitempty"`
	Stack      bool      `json:"stack,omitempty"`
	Value      any       `json:"value,omitempty"`
	// Condition names a selection; when set, Value applies to selected
	// marks and Else to the rest.
	Condition string `json:"condition,omitempty"`
	Else      any    `json:"else,omitempty"`
}

// Encoding is the set of channels of a chart or layer.
type Encoding struct {
	X       *Channel  `json:"x,omitempty"`
	Y       *Channel  `json:"y,omitempty"`
	XOffset *Channel  `json:"xOffset,omitempty"`
	YOffset *Channel  `json:"yOffset,omitempty"`
	Color   *Channel  `json:"color,omitempty"`
	Theta   *Channel  `json:"theta,omitempty"`
	Radius  *Channel  `json:"radius,omitempty"`
	Text    *Channel  `json:"text,omitempty"`
	Size    *Channel  `json:"size,omitempty"`
	Opacity *Channel  `json:"opacity,omitempty"`
	Stroke  *Channel  `json:"stroke,omitempty"`
	Tooltip []Channel `json:"tooltip,omitempty"`
}

// MarkProps are static mark properties.
type MarkProps struct {
	Point       bool    `json:"point,omitempty"`
	Filled      bool    `json:"filled,omitempty"`
	Size        float64 `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	InnerRadius float64 `json:"innerRadius,omitempty"`
	Align       string  `json:"align,omitempty"`
	Baseline    string  `json:"baseline,omitempty"`
	Dx          float64 `json:"dx,omitempty"`
	Dy          float64 `json:"dy,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
	Extent      string  `json:"extent,omitempty"`
}

// Selection is a pointer-driven selection that layers and conditional
// channels refer to by name. Non-interactive renderers may ignore it.
type Selection struct {
	Name    string   `json:"name"`
	On      string   `json:"on"`
	Fields  []string `json:"fields"`
	Nearest bool     `json:"nearest,omitempty"`
}

// Layer is an overlay drawn on top of the base chart. A nil Data means the
// layer reuses the chart's data. When names a selection that filters the
// layer's marks.
type Layer struct {
	Role     Role         `json:"role"`
	Mark     Mark         `json:"mark"`
	Props    MarkProps    `json:"markProps,omitzero"`
	Data     *frame.Frame `json:"data,omitempty"`
	Encoding Encoding     `json:"encoding"`
	When     string       `json:"when,omitempty"`
}

// Spec is a complete chart description.
type Spec struct {
	Mark       Mark         `json:"mark"`
	Title      string       `json:"title"`
	Width      int          `json:"width"`
	Height     int          `json:"height"`
	Props      MarkProps    `json:"markProps,omitzero"`
	Data       *frame.Frame `json:"data"`
	Encoding   Encoding     `json:"encoding"`
	Selections []Selection  `json:"selections,omitempty"`
	Layers     []Layer      `json:"layers,omitempty"`
}

// Layer returns the first layer with the given role.
func (s *Spec) Layer(role Role) (*Layer, bool) {
	for i := range s.Layers {
		if s.Layers[i].Role == role {
			return &s.Layers[i], true
		}
	}
	return nil, false
}

// LayerData returns the layer's own data, or the chart's when it has none.
func (s *Spec) LayerData(l *Layer) *frame.Frame {
	if l.Data != nil {
		return l.Data
	}
	return s.Data
}

// WriteJSON writes the spec as indented JSON to path.
func (s *Spec) WriteJSON(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

func boolPtr(b bool) *bool { return &b }

func intPtr(i int) *int { return &i }
