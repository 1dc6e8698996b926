package chart

import (
	"math"
	"sort"

	"github.com/dustin/go-humanize"

	"drugdeaths/frame"
)

// labelField is the column holding preformatted labels in label layers.
const labelField = "label"

// FormatCount renders a value with thousands separators: 12345 → "12,345",
// 1234.5 → "1,234.5".
func FormatCount(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return humanize.Comma(int64(v))
	}
	return humanize.Commaf(v)
}

// requireFields checks that f is non-empty and has every named field. Empty
// names are skipped.
func requireFields(mark Mark, f *frame.Frame, fields ...string) error {
	if f == nil {
		return ErrEmptyDataset
	}
	if err := f.Err(); err != nil {
		return err
	}
	for _, name := range fields {
		if name != "" && !f.Has(name) {
			return &InvalidFieldError{Chart: mark, Field: name}
		}
	}
	if f.Len() == 0 {
		return ErrEmptyDataset
	}
	return nil
}

func requireNumeric(mark Mark, f *frame.Frame, field string) error {
	if !f.IsNumeric(field) {
		return &InvalidFieldError{Chart: mark, Field: field, Reason: "not numeric"}
	}
	return nil
}

// axisOrder is the category order of a discrete axis: ascending for numeric
// fields, input order otherwise.
func axisOrder(f *frame.Frame, field string) []string {
	if !f.IsNumeric(field) {
		return f.Distinct(field)
	}
	type kv struct {
		label string
		v     float64
	}
	var vals []kv
	seen := map[string]bool{}
	for i := 0; i < f.Len(); i++ {
		s := f.String(i, field)
		if seen[s] {
			continue
		}
		seen[s] = true
		v, ok := f.Float(i, field)
		if !ok {
			v = math.Inf(1)
		}
		vals = append(vals, kv{s, v})
	}
	sort.SliceStable(vals, func(a, b int) bool { return vals[a].v < vals[b].v })
	out := make([]string, len(vals))
	for i, x := range vals {
		out[i] = x.label
	}
	return out
}

func fieldType(f *frame.Frame, field string) FieldType {
	if f.IsNumeric(field) {
		return Quantitative
	}
	return Nominal
}

func legend(show bool) *bool {
	if show {
		return nil
	}
	return boolPtr(false)
}
