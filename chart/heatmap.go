package chart

import (
	"fmt"

	"drugdeaths/frame"
)

// BuildHeatmap builds a grid of x by y cells coloured by a quantitative
// field. The input must already hold exactly one row per (x, y) cell.
func BuildHeatmap(f *frame.Frame, x, y, color string, opts HeatmapOptions) (*Spec, error) {
	if err := requireFields(MarkRect, f, x, y, color); err != nil {
		return nil, err
	}
	if err := requireNumeric(MarkRect, f, color); err != nil {
		return nil, err
	}
	seen := make(map[[2]string]bool, f.Len())
	for i := 0; i < f.Len(); i++ {
		cell := [2]string{f.String(i, x), f.String(i, y)}
		if seen[cell] {
			return nil, &DuplicateCellError{X: cell[0], Y: cell[1]}
		}
		seen[cell] = true
	}

	o := opts.resolve(800, 400, 0, fmt.Sprintf("%s by %s and %s", color, x, y))
	scheme := opts.Scheme
	if scheme == "" {
		scheme = SchemeSequential
	}
	return &Spec{
		Mark:   MarkRect,
		Title:  o.title,
		Width:  o.width,
		Height: o.height,
		Data:   f,
		Encoding: Encoding{
			X:     &Channel{Field: x, Type: Ordinal, Title: x, Sort: axisOrder(f, x), LabelAngle: intPtr(o.angle)},
			Y:     &Channel{Field: y, Type: Ordinal, Title: y, Sort: axisOrder(f, y)},
			Color: &Channel{Field: color, Type: Quantitative, Title: color, Scale: &Scale{Scheme: scheme}, Legend: legend(o.legend)},
			Tooltip: []Channel{
				{Field: x, Type: Ordinal},
				{Field: y, Type: Ordinal},
				{Field: color, Type: Quantitative},
			},
		},
	}, nil
}
