// Package stats turns a loaded table into numeric matrices for downstream
// statistics: feature matrices for model fitting and Pearson correlation
// over the drug flags and demographic fields.
package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"drugdeaths/frame"
	"drugdeaths/loader"
	"drugdeaths/registry"
)

// Columns of CorrelationFrame.
const (
	FieldX = "x"
	FieldY = "y"
	FieldR = "r"
)

// ErrNoFields is returned when no feature or correlation fields are given.
var ErrNoFields = errors.New("stats: no fields")

// UnknownFieldError reports a field that has no numeric value per record.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("stats: %q is not a numeric field", e.Field)
}

var calendarFields = []string{
	loader.FieldAge,
	loader.FieldYear,
	loader.FieldMonth,
	loader.FieldDay,
	loader.FieldQuarter,
	loader.FieldDayOfWeek,
}

// excludedFromCorrelation are flags left out of the default correlation
// set: one duplicates Heroin, the other is a catch-all.
var excludedFromCorrelation = map[string]bool{
	"Heroin death certificate (DC)": true,
	"Other":                         true,
}

// NumericFields lists the fields FeatureMatrix and Correlation accept.
func NumericFields() []string {
	return append(append([]string(nil), calendarFields...), registry.Columns()...)
}

// DefaultCorrelationFields is Age, Year and the drug flags that are neither
// duplicates nor catch-alls.
func DefaultCorrelationFields() []string {
	out := []string{loader.FieldAge, loader.FieldYear}
	for _, c := range registry.Columns() {
		if !excludedFromCorrelation[c] {
			out = append(out, c)
		}
	}
	return out
}

func checkFields(fields []string) error {
	if len(fields) == 0 {
		return ErrNoFields
	}
	for _, f := range fields {
		if !isNumeric(f) {
			return &UnknownFieldError{Field: f}
		}
	}
	return nil
}

func isNumeric(field string) bool {
	for _, c := range calendarFields {
		if c == field {
			return true
		}
	}
	return registry.Contains(field)
}

// matrix fills a rows-by-fields matrix in table order.
func matrix(t *loader.Table, fields []string) *mat.Dense {
	m := mat.NewDense(t.Len(), len(fields), nil)
	t.Each(func(i int, r loader.Record) bool {
		for j, f := range fields {
			v, _ := r.Numeric(f)
			m.Set(i, j, v)
		}
		return true
	})
	return m
}

// FeatureMatrix returns one row per record with the given feature columns,
// and the label column as a vector.
func FeatureMatrix(t *loader.Table, features []string, label string) (*mat.Dense, []float64, error) {
	if err := checkFields(features); err != nil {
		return nil, nil, err
	}
	if err := checkFields([]string{label}); err != nil {
		return nil, nil, err
	}
	for _, f := range features {
		if f == label {
			return nil, nil, fmt.Errorf("stats: label %q is also a feature", label)
		}
	}
	if t.Len() == 0 {
		return nil, nil, fmt.Errorf("stats: empty table")
	}
	x := matrix(t, features)
	y := make([]float64, t.Len())
	t.Each(func(i int, r loader.Record) bool {
		y[i], _ = r.Numeric(label)
		return true
	})
	return x, y, nil
}

// Correlation returns the Pearson correlation matrix of fields. Entries
// involving a zero-variance field are NaN.
func Correlation(t *loader.Table, fields []string) (*mat.SymDense, error) {
	if err := checkFields(fields); err != nil {
		return nil, err
	}
	if t.Len() < 2 {
		return nil, fmt.Errorf("stats: correlation needs at least 2 records, have %d", t.Len())
	}
	x := matrix(t, fields)
	corr := mat.NewSymDense(len(fields), nil)
	stat.CorrelationMatrix(corr, x, nil)

	// stat reports 1 on the diagonal even for a constant column.
	for j := range fields {
		if stat.Variance(mat.Col(nil, j, x), nil) == 0 {
			for k := range fields {
				corr.SetSym(j, k, math.NaN())
			}
		}
	}
	return corr, nil
}

// CorrelationFrame returns corr in long form, one (x, y, r) row per cell in
// field order, ready for a heatmap. NaN entries become nil. r is rounded to
// two decimals.
func CorrelationFrame(corr *mat.SymDense, fields []string) (*frame.Frame, error) {
	if n := corr.SymmetricDim(); n != len(fields) {
		return nil, fmt.Errorf("stats: %d fields for a %dx%d matrix", len(fields), n, n)
	}
	out := frame.New(FieldX, FieldY, FieldR)
	for i, fx := range fields {
		for j, fy := range fields {
			var r any
			if v := corr.At(i, j); !math.IsNaN(v) {
				r = math.Round(v*100) / 100
			}
			if err := out.Append(fx, fy, r); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
