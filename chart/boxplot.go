package chart

import (
	"fmt"
	"math"
	"sort"

	"drugdeaths/frame"
)

// Columns of the per-category summary rows in a boxplot spec.
const (
	BoxMin    = "min"
	BoxQ1     = "q1"
	BoxMedian = "median"
	BoxQ3     = "q3"
	BoxMax    = "max"
	BoxCount  = "count"
)

// BuildBoxplot builds one box per category from raw value rows. Whiskers
// reach the true minimum and maximum; quartiles interpolate linearly between
// order statistics. The spec's data holds one summary row per category, in
// category axis order. Nil values are skipped.
func BuildBoxplot(f *frame.Frame, category, value string, opts BoxplotOptions) (*Spec, error) {
	if err := requireFields(MarkBoxplot, f, category, value); err != nil {
		return nil, err
	}
	if err := requireNumeric(MarkBoxplot, f, value); err != nil {
		return nil, err
	}
	o := opts.resolve(800, 500, -30, fmt.Sprintf("Distribution of %s by %s", value, category))

	keys, parts, err := f.GroupBy(category).Groups()
	if err != nil {
		return nil, err
	}
	summary := frame.New(category, BoxMin, BoxQ1, BoxMedian, BoxQ3, BoxMax, BoxCount)
	for i, k := range keys {
		vals := numericCells(parts[i], value)
		if len(vals) == 0 {
			continue
		}
		s := FiveNumber(vals)
		if err := summary.Append(k[0], s.Min, s.Q1, s.Median, s.Q3, s.Max, len(vals)); err != nil {
			return nil, err
		}
	}
	if summary.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	summary = reorder(summary, category, axisOrder(f, category))
	if err := summary.Err(); err != nil {
		return nil, err
	}

	spec := &Spec{
		Mark:   MarkBoxplot,
		Title:  o.title,
		Width:  o.width,
		Height: o.height,
		Props:  MarkProps{Extent: "min-max", Size: 30},
		Data:   summary,
		Encoding: Encoding{
			X: &Channel{Field: category, Type: Nominal, Title: category, Sort: summary.Distinct(category), LabelAngle: intPtr(o.angle)},
			Y: &Channel{Field: value, Type: Quantitative, Title: value},
			Tooltip: []Channel{
				{Field: category, Type: Nominal},
				{Field: BoxMedian, Type: Quantitative},
			},
		},
	}
	if p, ok := KnownPalette(category); ok {
		spec.Encoding.Color = &Channel{Field: category, Type: Nominal, Scale: p.scale(), Legend: legend(o.legend)}
	}
	return spec, nil
}

// FiveNumberSummary is the min, quartiles and max of a sample.
type FiveNumberSummary struct {
	Min, Q1, Median, Q3, Max float64
}

// FiveNumber summarizes vals, which must be non-empty. Quartiles use linear
// interpolation between closest ranks (R type 7).
func FiveNumber(vals []float64) FiveNumberSummary {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	return FiveNumberSummary{
		Min:    s[0],
		Q1:     quantile7(s, 0.25),
		Median: quantile7(s, 0.5),
		Q3:     quantile7(s, 0.75),
		Max:    s[len(s)-1],
	}
}

// quantile7 computes the p-quantile of sorted s.
func quantile7(s []float64, p float64) float64 {
	h := float64(len(s)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(s) {
		return s[len(s)-1]
	}
	return s[i] + (h-lo)*(s[i+1]-s[i])
}

func numericCells(f *frame.Frame, field string) []float64 {
	var out []float64
	for i := 0; i < f.Len(); i++ {
		if v, ok := f.Float(i, field); ok {
			out = append(out, v)
		}
	}
	return out
}

// reorder returns f's rows ordered by the position of field's value in order.
func reorder(f *frame.Frame, field string, order []string) *frame.Frame {
	pos := make(map[string]int, len(order))
	for i, c := range order {
		pos[c] = i
	}
	return f.WithColumn("_pos", func(r frame.Row) any { return pos[r.String(field)] }).
		SortBy("_pos", false).
		Select(f.Columns()...)
}
