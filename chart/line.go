package chart

import (
	"fmt"

	"drugdeaths/frame"
)

// seriesField names the series column of a total overlay drawn without a
// colour field.
const seriesField = "Series"

// BuildLine builds a line chart with point markers over an ordinal x axis.
// Points are ordered by x (ascending for numeric x, input order otherwise),
// one series per colour category.
//
// With opts.Total, a "Total" series summing y per x over the given rows is
// overlaid; scope it by filtering the input.
func BuildLine(f *frame.Frame, x, y, color string, opts LineOptions) (*Spec, error) {
	if err := requireFields(MarkLine, f, x, y, color); err != nil {
		return nil, err
	}
	if err := requireNumeric(MarkLine, f, y); err != nil {
		return nil, err
	}
	o := opts.resolve(800, 400, 0, fmt.Sprintf("%s by %s", y, x))

	order := axisOrder(f, x)
	xCh := &Channel{Field: x, Type: Ordinal, Title: x, Sort: order, LabelAngle: intPtr(o.angle)}
	spec := &Spec{
		Mark:   MarkLine,
		Title:  o.title,
		Width:  o.width,
		Height: o.height,
		Props:  MarkProps{Point: true},
		Data:   f,
		Encoding: Encoding{
			X:       xCh,
			Y:       &Channel{Field: y, Type: Quantitative, Title: y},
			Tooltip: []Channel{{Field: x, Type: Ordinal}, {Field: y, Type: Quantitative}},
		},
		Selections: []Selection{{Name: "hover", On: "pointerover", Fields: []string{x}, Nearest: true}},
	}

	if color != "" {
		spec.Encoding.Color = seriesColor(color, opts.Total, o.legend)
		spec.Encoding.Tooltip = append(spec.Encoding.Tooltip, Channel{Field: color, Type: Nominal})
	}

	spec.Layers = append(spec.Layers,
		Layer{
			Role:  RoleHoverPoints,
			Mark:  MarkPoint,
			Props: MarkProps{Size: 100, Filled: true},
			Encoding: Encoding{
				X:       xCh,
				Y:       spec.Encoding.Y,
				Color:   spec.Encoding.Color,
				Opacity: &Channel{Condition: "hover", Value: 1, Else: 0},
			},
		},
		Layer{
			Role:     RoleHoverRule,
			Mark:     MarkRule,
			Props:    MarkProps{Color: "gray"},
			Encoding: Encoding{X: xCh, Size: &Channel{Condition: "hover", Value: 2, Else: 0}},
			When:     "hover",
		},
	)

	if opts.Total {
		seriesBy, totalColor := color, spec.Encoding.Color
		if color == "" {
			seriesBy, totalColor = seriesField, &Channel{Value: totalColorValue}
		}
		totals, err := lineTotals(f, x, y, seriesBy)
		if err != nil {
			return nil, err
		}
		spec.Layers = append(spec.Layers, Layer{
			Role:  RoleTotal,
			Mark:  MarkLine,
			Props: MarkProps{Point: true},
			Data:  totals,
			Encoding: Encoding{
				X:       xCh,
				Y:       &Channel{Field: y, Type: Quantitative},
				Color:   totalColor,
				Tooltip: []Channel{{Field: x, Type: Ordinal}, {Field: y, Type: Quantitative}},
			},
		})
	}
	return spec, nil
}

func seriesColor(field string, total, showLegend bool) *Channel {
	ch := &Channel{Field: field, Type: Nominal, Title: field, Legend: legend(showLegend)}
	if p, ok := KnownPalette(field); ok {
		if total {
			p = p.WithTotal()
		}
		ch.Scale = p.scale()
	}
	return ch
}

// lineTotals sums y per x in x's first-appearance order and tags the rows
// with TotalCategory in the series column.
func lineTotals(f *frame.Frame, x, y, series string) (*frame.Frame, error) {
	totals := f.GroupBy(x).Sum(y, y).
		WithColumn(series, func(frame.Row) any { return TotalCategory }).
		Select(x, y, series)
	if err := totals.Err(); err != nil {
		return nil, fmt.Errorf("total series: %w", err)
	}
	return totals, nil
}
