package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/palette/moreland"

	"drugdeaths/chart"
)

var namedColors = map[string]color.Color{
	"black":       color.Black,
	"white":       color.White,
	"gray":        color.RGBA{R: 128, G: 128, B: 128, A: 255},
	"grey":        color.RGBA{R: 128, G: 128, B: 128, A: 255},
	"transparent": color.Transparent,
}

// category20 is the d3 category20 qualitative scheme.
var category20 = []string{
	"#1f77b4", "#aec7e8", "#ff7f0e", "#ffbb78", "#2ca02c",
	"#98df8a", "#d62728", "#ff9896", "#9467bd", "#c5b0d5",
	"#8c564b", "#c49c94", "#e377c2", "#f7b6d2", "#7f7f7f",
	"#c7c7c7", "#bcbd22", "#dbdb8d", "#17becf", "#9edae5",
}

// viridisControls are viridis anchors with strictly increasing lightness.
var viridisControls = []string{
	"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// parseColor accepts #rgb, #rrggbb and a few CSS names.
func parseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return nil, fmt.Errorf("render: unsupported colour %q", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, fmt.Errorf("render: unsupported colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("render: unsupported colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

func mustColor(s string) color.Color {
	c, err := parseColor(s)
	if err != nil {
		return color.Black
	}
	return c
}

// categorical assigns colours to categories from a channel's fixed scale,
// falling back to category20 in the given order.
type categorical struct {
	fixed map[string]color.Color
	next  int
	seen  map[string]color.Color
}

func newCategorical(ch *chart.Channel) *categorical {
	c := &categorical{fixed: map[string]color.Color{}, seen: map[string]color.Color{}}
	if ch != nil && ch.Scale != nil {
		for i, d := range ch.Scale.Domain {
			if i < len(ch.Scale.Range) {
				c.fixed[d] = mustColor(ch.Scale.Range[i])
			}
		}
	}
	return c
}

func (c *categorical) color(cat string) color.Color {
	if clr, ok := c.fixed[cat]; ok {
		return clr
	}
	if clr, ok := c.seen[cat]; ok {
		return clr
	}
	clr := mustColor(category20[c.next%len(category20)])
	c.next++
	c.seen[cat] = clr
	return clr
}

// sequential returns an n-colour palette for a continuous scheme name.
// Viridis is interpolated in CIELAB; other names are looked up among the
// ColorBrewer schemes, and anything unknown falls back to a heat ramp.
func sequential(scheme string, n int) palette.Palette {
	if scheme == "" || scheme == chart.SchemeSequential {
		controls := make([]color.Color, len(viridisControls))
		for i, s := range viridisControls {
			controls[i] = mustColor(s)
		}
		if cm, err := moreland.NewLuminance(controls); err == nil {
			cm.SetMin(0)
			cm.SetMax(1)
			return cm.Palette(n)
		}
	}
	if p, err := brewer.GetPalette(brewer.TypeAny, scheme, 9); err == nil {
		return p
	}
	return palette.Heat(n, 1)
}
