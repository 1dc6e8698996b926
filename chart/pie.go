package chart

import (
	"fmt"
	"math"
	"sort"

	"drugdeaths/frame"
)

// Fields added to pie data.
const (
	PercentageField = "percentage"
	totalField      = "total"
)

// BuildPie builds a donut chart of value per category. Each slice carries its
// percentage of the column total to one decimal, and a count label with
// thousands separators. The percentages always sum to exactly 100.
func BuildPie(f *frame.Frame, category, value string, opts PieOptions) (*Spec, error) {
	if err := requireFields(MarkArc, f, category, value); err != nil {
		return nil, err
	}
	if err := requireNumeric(MarkArc, f, value); err != nil {
		return nil, err
	}
	vals, err := f.Floats(value)
	if err != nil {
		return nil, &InvalidFieldError{Chart: MarkArc, Field: value, Reason: err.Error()}
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	if total == 0 {
		return nil, ErrDivisionByZero
	}

	o := opts.resolve(600, 300, 0, fmt.Sprintf("%s by %s", value, category))
	inner := 50
	if opts.InnerRadius != nil {
		inner = *opts.InnerRadius
	}

	pct := percentages(vals, total)
	data := f.Select(category, value).
		WithColumn(PercentageField, func(r frame.Row) any { return pct[r.Index()] }).
		WithColumn(labelField, func(r frame.Row) any {
			v, _ := r.Float(value)
			return FormatCount(v)
		})
	if err := data.Err(); err != nil {
		return nil, err
	}

	color := &Channel{Field: category, Type: Nominal, Title: category, Legend: legend(o.legend)}
	if p, ok := KnownPalette(category); ok {
		color.Scale = p.scale()
	} else {
		color.Scale = &Scale{Scheme: SchemeCategorical}
	}
	theta := &Channel{Field: value, Type: Quantitative, Stack: true}

	spec := &Spec{
		Mark:   MarkArc,
		Title:  o.title,
		Width:  o.width,
		Height: o.height,
		Props:  MarkProps{InnerRadius: float64(inner)},
		Data:   data,
		Encoding: Encoding{
			Theta:   theta,
			Color:   color,
			Opacity: &Channel{Condition: "select", Value: 1, Else: 0.6},
			Stroke:  &Channel{Condition: "select", Value: "black", Else: "transparent"},
			Tooltip: []Channel{
				{Field: category, Type: Nominal},
				{Field: PercentageField, Type: Quantitative, Format: ".1f"},
			},
		},
		Selections: []Selection{{Name: "select", On: "pointerover", Fields: []string{category}}},
		Layers: []Layer{{
			Role:  RoleSliceLabels,
			Mark:  MarkText,
			Props: MarkProps{FontSize: 14},
			Encoding: Encoding{
				Theta:  theta,
				Radius: &Channel{Value: inner + 90},
				Text:   &Channel{Field: labelField, Type: Nominal},
				Color:  &Channel{Field: category, Type: Nominal, Scale: color.Scale},
			},
		}},
	}

	if opts.ShowTotal == nil || *opts.ShowTotal {
		center := frame.New(totalField, labelField)
		if err := center.Append(total, FormatCount(total)); err != nil {
			return nil, err
		}
		spec.Layers = append(spec.Layers, Layer{
			Role:     RoleCenterTotal,
			Mark:     MarkText,
			Props:    MarkProps{FontSize: 20, Align: "center", Baseline: "middle"},
			Data:     center,
			Encoding: Encoding{Text: &Channel{Field: labelField, Type: Nominal}},
		})
	}
	return spec, nil
}

// percentages splits 100% into tenths by the largest remainder method: every
// share is floored to a tenth and the tenths left over go to the shares with
// the largest remainders, earlier rows first on ties.
func percentages(vals []float64, total float64) []float64 {
	tenths := make([]int, len(vals))
	rem := make([]float64, len(vals))
	left := 1000
	for i, v := range vals {
		raw := v / total * 1000
		fl := math.Floor(raw + 1e-9)
		tenths[i] = int(fl)
		rem[i] = raw - fl
		left -= tenths[i]
	}
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return rem[order[a]] > rem[order[b]] })
	for k := 0; k < left && k < len(order); k++ {
		tenths[order[k]]++
	}
	out := make([]float64, len(vals))
	for i, t := range tenths {
		out[i] = float64(t) / 10
	}
	return out
}
