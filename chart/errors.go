package chart

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset is returned by every builder given a frame with no rows.
// Callers are expected to skip the chart.
var ErrEmptyDataset = errors.New("chart: empty dataset")

// ErrDivisionByZero is returned by BuildPie when the values sum to zero.
var ErrDivisionByZero = errors.New("chart: values sum to zero")

// InvalidFieldError reports a field that a builder was asked to encode but
// that its frame lacks or cannot encode.
type InvalidFieldError struct {
	Chart  Mark
	Field  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "not in input"
	}
	return fmt.Sprintf("chart %s: field %q: %s", e.Chart, e.Field, reason)
}

// DuplicateCellError reports a heatmap input with more than one row for the
// same (x, y) cell.
type DuplicateCellError struct {
	X, Y string
}

func (e *DuplicateCellError) Error() string {
	return fmt.Sprintf("chart rect: duplicate cell (%s, %s)", e.X, e.Y)
}
