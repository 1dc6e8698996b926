package frame

import (
	"fmt"
	"strings"
)

// Grouped is a frame partitioned by key columns. Groups keep the order in
// which their first row appears.
type Grouped struct {
	src    *Frame
	keys   []string
	keyIdx []int
	order  []string
	rows   map[string][]int
	err    error
}

// GroupBy partitions the frame by the given key columns.
func (f *Frame) GroupBy(keys ...string) *Grouped {
	g := &Grouped{src: f, keys: keys, rows: map[string][]int{}, err: f.err}
	if g.err != nil {
		return g
	}
	for _, k := range keys {
		j, ok := f.index[k]
		if !ok {
			g.err = fmt.Errorf("frame: group by unknown column %q", k)
			return g
		}
		g.keyIdx = append(g.keyIdx, j)
	}
	var b strings.Builder
	for i, r := range f.rows {
		b.Reset()
		for _, j := range g.keyIdx {
			b.WriteString(format(r[j]))
			b.WriteByte(0)
		}
		key := b.String()
		if _, seen := g.rows[key]; !seen {
			g.order = append(g.order, key)
		}
		g.rows[key] = append(g.rows[key], i)
	}
	return g
}

// Agg is one aggregation over a group.
type Agg struct {
	As  string
	col string
	fn  func(src *Frame, col string, rows []int) any
}

// CountOf counts the rows of each group.
func CountOf(as string) Agg {
	return Agg{As: as, fn: func(_ *Frame, _ string, rows []int) any { return int64(len(rows)) }}
}

// SumOf sums column col. The result is int64 when every summed cell is an
// integer, float64 otherwise. Nil cells are skipped.
func SumOf(col, as string) Agg {
	return Agg{As: as, col: col, fn: func(src *Frame, col string, rows []int) any {
		j := src.index[col]
		var isum int64
		var fsum float64
		integral := true
		for _, i := range rows {
			switch x := src.rows[i][j].(type) {
			case int64:
				isum += x
				fsum += float64(x)
			case float64:
				integral = false
				fsum += x
			}
		}
		if integral {
			return isum
		}
		return fsum
	}}
}

// MeanOf averages column col, skipping nil cells. A group without numeric
// cells yields nil.
func MeanOf(col, as string) Agg {
	return Agg{As: as, col: col, fn: func(src *Frame, col string, rows []int) any {
		j := src.index[col]
		var sum float64
		var n int
		for _, i := range rows {
			if v, ok := toFloat(src.rows[i][j]); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return sum / float64(n)
	}}
}

// Agg applies the aggregations and returns one row per group: the key
// columns followed by one column per aggregation.
func (g *Grouped) Agg(aggs ...Agg) *Frame {
	cols := append([]string(nil), g.keys...)
	for _, a := range aggs {
		cols = append(cols, a.As)
	}
	if g.err != nil {
		out := New(cols...)
		out.err = g.err
		return out
	}
	for _, a := range aggs {
		if a.col != "" && !g.src.Has(a.col) {
			return errorf("frame: aggregate unknown column %q", a.col)
		}
	}
	out := New(cols...)
	if out.err != nil {
		return out
	}
	for _, key := range g.order {
		rows := g.rows[key]
		first := g.src.rows[rows[0]]
		nr := make([]any, 0, len(cols))
		for _, j := range g.keyIdx {
			nr = append(nr, first[j])
		}
		for _, a := range aggs {
			nr = append(nr, a.fn(g.src, a.col, rows))
		}
		out.rows = append(out.rows, nr)
	}
	return out
}

// Count is shorthand for Agg(CountOf(as)).
func (g *Grouped) Count(as string) *Frame { return g.Agg(CountOf(as)) }

// Sum is shorthand for Agg(SumOf(col, as)).
func (g *Grouped) Sum(col, as string) *Frame { return g.Agg(SumOf(col, as)) }

// Mean is shorthand for Agg(MeanOf(col, as)).
func (g *Grouped) Mean(col, as string) *Frame { return g.Agg(MeanOf(col, as)) }

// Groups returns each group's key values and its rows as a frame, in group
// order.
func (g *Grouped) Groups() ([][]any, []*Frame, error) {
	if g.err != nil {
		return nil, nil, g.err
	}
	keys := make([][]any, 0, len(g.order))
	parts := make([]*Frame, 0, len(g.order))
	for _, key := range g.order {
		rows := g.rows[key]
		first := g.src.rows[rows[0]]
		kv := make([]any, len(g.keyIdx))
		for k, j := range g.keyIdx {
			kv[k] = first[j]
		}
		part := New(g.src.cols...)
		for _, i := range rows {
			part.rows = append(part.rows, g.src.rows[i])
		}
		keys = append(keys, kv)
		parts = append(parts, part)
	}
	return keys, parts, nil
}
