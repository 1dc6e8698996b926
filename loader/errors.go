package loader

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoAges is returned when every Age cell is empty, leaving no mean to
// impute from.
var ErrNoAges = errors.New("no non-missing age to impute from")

// DataLoadError reports a source that cannot be turned into a normalized
// table. Any DataLoadError aborts the whole load.
type DataLoadError struct {
	Path    string
	Row     int64    // 1-based CSV row, 0 when not row-specific
	Column  string   // offending column, if any
	Missing []string // required columns absent from the header
	Err     error
}

func (e *DataLoadError) Error() string {
	var b strings.Builder
	b.WriteString("load")
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing required columns %s", strings.Join(quoteAll(e.Missing), ", "))
		return b.String()
	}
	if e.Row > 0 {
		fmt.Fprintf(&b, ": row %d", e.Row)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %q", e.Column)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// DateParseError is a Date cell that does not match MM/DD/YYYY.
type DateParseError struct {
	Row   int64
	Value string
	Err   error
}

func (e *DateParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("row %d: empty date", e.Row)
	}
	return fmt.Sprintf("row %d: parse date %q: %v", e.Row, e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
