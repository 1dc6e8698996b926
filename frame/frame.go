// Package frame is a small column-named table used between the normalized
// dataset and the chart builders. Cells hold string, int64, float64 or nil.
//
// Operations never modify their receiver. A frame produced from a bad
// operation (unknown column, mismatched arity) carries a sticky error that
// every later operation propagates; check it once with Err at the end of a
// chain.
package frame

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Frame is an ordered set of rows over named columns.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]any
	err   error
}

// New returns an empty frame with the given columns.
func New(columns ...string) *Frame {
	f := &Frame{
		cols:  append([]string(nil), columns...),
		index: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := f.index[c]; dup {
			f.err = fmt.Errorf("frame: duplicate column %q", c)
		}
		f.index[c] = i
	}
	return f
}

// errorf returns an empty frame carrying the formatted error.
func errorf(format string, args ...any) *Frame {
	return &Frame{index: map[string]int{}, err: fmt.Errorf(format, args...)}
}

// Err returns the first error recorded while building the frame.
func (f *Frame) Err() error { return f.err }

// Append adds one row. It is meant for building a frame, before the frame is
// handed to any consumer.
func (f *Frame) Append(values ...any) error {
	if f.err != nil {
		return f.err
	}
	if len(values) != len(f.cols) {
		return fmt.Errorf("frame: append %d values to %d columns", len(values), len(f.cols))
	}
	row := make([]any, len(values))
	for i, v := range values {
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("frame: column %q: %w", f.cols[i], err)
		}
		row[i] = nv
	}
	f.rows = append(f.rows, row)
	return nil
}

func normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case *float64:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string { return append([]string(nil), f.cols...) }

// Has reports whether the frame has column c.
func (f *Frame) Has(c string) bool {
	_, ok := f.index[c]
	return ok
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Value returns the cell at row i, column c, or nil when c is unknown.
func (f *Frame) Value(i int, c string) any {
	j, ok := f.index[c]
	if !ok {
		return nil
	}
	return f.rows[i][j]
}

// String formats the cell at row i, column c. Nil cells are "".
func (f *Frame) String(i int, c string) string { return format(f.Value(i, c)) }

// Float returns the numeric cell at row i, column c.
func (f *Frame) Float(i int, c string) (float64, bool) { return toFloat(f.Value(i, c)) }

// Row returns a view of row i.
func (f *Frame) Row(i int) Row { return Row{f: f, i: i} }

// Column returns a copy of the cells in column c.
func (f *Frame) Column(c string) []any {
	j, ok := f.index[c]
	if !ok {
		return nil
	}
	out := make([]any, len(f.rows))
	for i, r := range f.rows {
		out[i] = r[j]
	}
	return out
}

// Floats returns column c as float64s. Nil or non-numeric cells are an error.
func (f *Frame) Floats(c string) ([]float64, error) {
	j, ok := f.index[c]
	if !ok {
		return nil, fmt.Errorf("frame: unknown column %q", c)
	}
	out := make([]float64, len(f.rows))
	for i, r := range f.rows {
		v, ok := toFloat(r[j])
		if !ok {
			return nil, fmt.Errorf("frame: column %q row %d: %v is not numeric", c, i, r[j])
		}
		out[i] = v
	}
	return out, nil
}

// IsNumeric reports whether every non-nil cell in column c is a number and at
// least one cell is non-nil.
func (f *Frame) IsNumeric(c string) bool {
	j, ok := f.index[c]
	if !ok {
		return false
	}
	seen := false
	for _, r := range f.rows {
		switch r[j].(type) {
		case nil:
		case int64, float64:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// Distinct returns the distinct formatted values of column c in order of
// first appearance.
func (f *Frame) Distinct(c string) []string {
	j, ok := f.index[c]
	if !ok {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, r := range f.rows {
		s := format(r[j])
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (f *Frame) derive(cols []string) *Frame {
	n := New(cols...)
	if f.err != nil {
		n.err = f.err
	}
	return n
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(Row) bool) *Frame {
	n := f.derive(f.cols)
	if n.err != nil {
		return n
	}
	for i, r := range f.rows {
		if keep(Row{f: f, i: i}) {
			n.rows = append(n.rows, r)
		}
	}
	return n
}

// Head keeps the first n rows.
func (f *Frame) Head(n int) *Frame {
	out := f.derive(f.cols)
	if n > len(f.rows) {
		n = len(f.rows)
	}
	if n > 0 {
		out.rows = append(out.rows, f.rows[:n]...)
	}
	return out
}

// SortBy orders rows by column c. Numbers compare numerically, everything
// else by its formatted string; nil cells sort last. The sort is stable.
func (f *Frame) SortBy(c string, descending bool) *Frame {
	out := f.derive(f.cols)
	if out.err != nil {
		return out
	}
	j, ok := f.index[c]
	if !ok {
		return errorf("frame: sort by unknown column %q", c)
	}
	out.rows = append(out.rows, f.rows...)
	sort.SliceStable(out.rows, func(a, b int) bool {
		va, vb := out.rows[a][j], out.rows[b][j]
		if va == nil || vb == nil {
			return va != nil && vb == nil
		}
		cmp := compare(va, vb)
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
	return out
}

// WithColumn returns a frame with column name set to fn(row) for every row,
// replacing an existing column of that name.
func (f *Frame) WithColumn(name string, fn func(Row) any) *Frame {
	cols := f.cols
	j, exists := f.index[name]
	if !exists {
		cols = append(append([]string(nil), f.cols...), name)
		j = len(cols) - 1
	}
	out := f.derive(cols)
	if out.err != nil {
		return out
	}
	for i, r := range f.rows {
		nr := make([]any, len(cols))
		copy(nr, r)
		v, err := normalize(fn(Row{f: f, i: i}))
		if err != nil {
			return errorf("frame: column %q: %w", name, err)
		}
		nr[j] = v
		out.rows = append(out.rows, nr)
	}
	return out
}

// Rename returns a frame with column from renamed to to.
func (f *Frame) Rename(from, to string) *Frame {
	if f.err != nil {
		return f.derive(f.cols)
	}
	j, ok := f.index[from]
	if !ok {
		return errorf("frame: rename unknown column %q", from)
	}
	cols := append([]string(nil), f.cols...)
	cols[j] = to
	out := New(cols...)
	out.rows = append(out.rows, f.rows...)
	return out
}

// Select projects the frame onto cols, in that order.
func (f *Frame) Select(cols ...string) *Frame {
	out := f.derive(cols)
	if out.err != nil {
		return out
	}
	idx := make([]int, len(cols))
	for k, c := range cols {
		j, ok := f.index[c]
		if !ok {
			return errorf("frame: select unknown column %q", c)
		}
		idx[k] = j
	}
	for _, r := range f.rows {
		nr := make([]any, len(cols))
		for k, j := range idx {
			nr[k] = r[j]
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// Concat stacks frames that share the same columns.
func Concat(frames ...*Frame) *Frame {
	if len(frames) == 0 {
		return New()
	}
	out := frames[0].derive(frames[0].cols)
	for _, fr := range frames {
		if fr.err != nil {
			out.err = fr.err
			return out
		}
		if strings.Join(fr.cols, "\x00") != strings.Join(out.cols, "\x00") {
			return errorf("frame: concat columns %v with %v", fr.cols, out.cols)
		}
		out.rows = append(out.rows, fr.rows...)
	}
	return out
}

// Records returns the rows as column-keyed maps.
func (f *Frame) Records() []map[string]any {
	out := make([]map[string]any, len(f.rows))
	for i, r := range f.rows {
		m := make(map[string]any, len(f.cols))
		for j, c := range f.cols {
			m[c] = r[j]
		}
		out[i] = m
	}
	return out
}

// MarshalJSON encodes the frame as an array of row objects.
func (f *Frame) MarshalJSON() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return json.Marshal(f.Records())
}

// Row is a read-only view of one frame row.
type Row struct {
	f *Frame
	i int
}

// Index returns the row position in its frame.
func (r Row) Index() int { return r.i }

// Value returns the cell in column c.
func (r Row) Value(c string) any { return r.f.Value(r.i, c) }

// String formats the cell in column c.
func (r Row) String(c string) string { return r.f.String(r.i, c) }

// Float returns the numeric cell in column c.
func (r Row) Float(c string) (float64, bool) { return r.f.Float(r.i, c) }

// Int returns the numeric cell in column c truncated to int64.
func (r Row) Int(c string) int64 {
	v, _ := r.f.Float(r.i, c)
	return int64(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func compare(a, b any) int {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(format(a), format(b))
}
