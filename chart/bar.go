package chart

import (
	"fmt"
	"sort"
	"strings"

	"drugdeaths/frame"
)

// BuildBar builds a bar chart of value per category.
//
// The category order is resolved here and recorded on the category channel:
// by the category's total value (descending for "-y"/"-x", ascending for
// "y"/"x"), in input order for "none", or as an explicit list. When color has
// a known palette the groups are drawn side by side; any other colour field
// maps to a quantitative or nominal scale.
func BuildBar(f *frame.Frame, category, value, color string, opts BarOptions) (*Spec, error) {
	if err := requireFields(MarkBar, f, category, value, color); err != nil {
		return nil, err
	}
	if err := requireNumeric(MarkBar, f, value); err != nil {
		return nil, err
	}
	o := opts.resolve(700, 400, 0, fmt.Sprintf("%s by %s", value, category))

	order, err := barOrder(f, category, value, opts)
	if err != nil {
		return nil, err
	}
	catCh := &Channel{Field: category, Type: Nominal, Title: category, Sort: order}
	valCh := &Channel{Field: value, Type: Quantitative, Title: value}

	spec := &Spec{
		Mark:   MarkBar,
		Title:  o.title,
		Width:  o.width,
		Height: o.height,
		Props:  MarkProps{StrokeWidth: 2},
		Data:   f,
		Encoding: Encoding{
			Opacity: &Channel{Condition: "highlight", Value: 1, Else: 0.6},
			Stroke:  &Channel{Condition: "highlight", Value: "black"},
			Tooltip: []Channel{
				{Field: category, Type: Nominal},
				{Field: value, Type: Quantitative, Format: ","},
			},
		},
	}
	if opts.Horizontal {
		spec.Encoding.X, spec.Encoding.Y = valCh, catCh
	} else {
		catCh.LabelAngle = intPtr(o.angle)
		spec.Encoding.X, spec.Encoding.Y = catCh, valCh
	}

	var offset *Channel
	selFields := []string{category}
	if color != "" {
		ch := &Channel{Field: color, Title: color, Legend: legend(o.legend)}
		if p, ok := KnownPalette(color); ok {
			ch.Type = Nominal
			ch.Scale = p.scale()
			offset = &Channel{Field: color, Type: Nominal}
		} else {
			ch.Type = fieldType(f, color)
		}
		spec.Encoding.Color = ch
		spec.Encoding.Tooltip = append(spec.Encoding.Tooltip, Channel{Field: color, Type: ch.Type})
		if color != category && color != value {
			selFields = append(selFields, color)
		}
	}
	if offset != nil {
		if opts.Horizontal {
			spec.Encoding.YOffset = offset
		} else {
			spec.Encoding.XOffset = offset
		}
	}
	spec.Selections = []Selection{{Name: "highlight", On: "pointerover", Fields: selFields}}

	if opts.Labels == nil || *opts.Labels {
		labels := f.WithColumn(labelField, func(r frame.Row) any {
			v, _ := r.Float(value)
			return FormatCount(v)
		})
		if err := labels.Err(); err != nil {
			return nil, err
		}
		layer := Layer{
			Role: RoleLabels,
			Mark: MarkText,
			Data: labels,
			Encoding: Encoding{
				X:       spec.Encoding.X,
				Y:       spec.Encoding.Y,
				XOffset: spec.Encoding.XOffset,
				YOffset: spec.Encoding.YOffset,
				Text:    &Channel{Field: labelField, Type: Nominal},
				Opacity: &Channel{Condition: "highlight", Value: 1, Else: 0.6},
			},
		}
		if opts.Horizontal {
			layer.Props = MarkProps{Align: "left", Baseline: "middle", Dx: 5}
		} else {
			layer.Props = MarkProps{Align: "center", Baseline: "bottom", Dy: -5}
		}
		spec.Layers = append(spec.Layers, layer)
	}
	return spec, nil
}

// barOrder resolves the category order for opts.
func barOrder(f *frame.Frame, category, value string, opts BarOptions) ([]string, error) {
	if len(opts.Order) > 0 {
		return explicitOrder(f, category, opts.Order), nil
	}
	policy := strings.TrimSpace(opts.Sort)
	switch policy {
	case "", "-y", "-x", "y", "x":
	case SortNone:
		return f.Distinct(category), nil
	default:
		return explicitOrder(f, category, strings.Split(policy, ",")), nil
	}

	sums := f.GroupBy(category).Sum(value, value)
	if err := sums.Err(); err != nil {
		return nil, err
	}
	type kv struct {
		cat string
		v   float64
	}
	vals := make([]kv, sums.Len())
	for i := range vals {
		v, _ := sums.Float(i, value)
		vals[i] = kv{sums.String(i, category), v}
	}
	descending := policy == "" || strings.HasPrefix(policy, "-")
	sort.SliceStable(vals, func(a, b int) bool {
		if descending {
			return vals[a].v > vals[b].v
		}
		return vals[a].v < vals[b].v
	})
	out := make([]string, len(vals))
	for i, x := range vals {
		out[i] = x.cat
	}
	return out, nil
}

// explicitOrder lists the given categories first, then any others present in
// f in input order.
func explicitOrder(f *frame.Frame, category string, order []string) []string {
	out := make([]string, 0, len(order))
	seen := map[string]bool{}
	for _, c := range order {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range f.Distinct(category) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
