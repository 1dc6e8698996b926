// Package render draws chart specs to static images with gonum/plot.
//
// Interaction layers (hover points, rules and selections) have no static
// rendition and are skipped. The output format follows the file extension:
// .png, .svg or .pdf.
package render

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgpdf"
	_ "gonum.org/v1/plot/vg/vgsvg"

	"drugdeaths/chart"
	"drugdeaths/frame"
)

// pixel converts spec pixel sizes to points at 96 dpi.
const pixel = vg.Inch / 96

// ErrUnsupportedMark is returned for specs whose mark has no static renderer.
var ErrUnsupportedMark = errors.New("render: unsupported mark")

// Formats lists the supported file extensions.
var Formats = []string{"png", "svg", "pdf"}

// Save renders spec to path.
func Save(spec *chart.Spec, path string) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !supported(ext) {
		return fmt.Errorf("render: unsupported format %q", ext)
	}
	p, err := Plot(spec)
	if err != nil {
		return err
	}
	w, h := size(spec)
	return p.Save(w, h, path)
}

// Plot builds the gonum plot for spec without writing it.
func Plot(spec *chart.Spec) (*plot.Plot, error) {
	if spec == nil || spec.Data == nil {
		return nil, chart.ErrEmptyDataset
	}
	p := plot.New()
	p.Title.Text = spec.Title
	p.Legend.Top = true

	var err error
	switch spec.Mark {
	case chart.MarkLine:
		err = drawLine(p, spec)
	case chart.MarkBar:
		err = drawBar(p, spec)
	case chart.MarkArc:
		err = drawPie(p, spec)
	case chart.MarkRect:
		err = drawHeatmap(p, spec)
	case chart.MarkBoxplot:
		err = drawBoxplot(p, spec)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedMark, spec.Mark)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func supported(ext string) bool {
	for _, f := range Formats {
		if f == ext {
			return true
		}
	}
	return false
}

func size(spec *chart.Spec) (vg.Length, vg.Length) {
	w, h := spec.Width, spec.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 400
	}
	return vg.Length(w) * pixel, vg.Length(h) * pixel
}

func axisTitles(p *plot.Plot, spec *chart.Spec) {
	if ch := spec.Encoding.X; ch != nil {
		p.X.Label.Text = ch.Title
		if ch.LabelAngle != nil && *ch.LabelAngle != 0 {
			p.X.Tick.Label.Rotation = -float64(*ch.LabelAngle) * math.Pi / 180
			p.X.Tick.Label.XAlign = draw.XRight
		}
	}
	if ch := spec.Encoding.Y; ch != nil {
		p.Y.Label.Text = ch.Title
	}
}

// positions maps each category of an ordinal channel to its axis slot.
func positions(order []string) map[string]int {
	pos := make(map[string]int, len(order))
	for i, c := range order {
		pos[c] = i
	}
	return pos
}

func legendHidden(ch *chart.Channel) bool {
	return ch != nil && ch.Legend != nil && !*ch.Legend
}

// drawLine draws one line with point markers per series, then the total
// overlay when present.
func drawLine(p *plot.Plot, spec *chart.Spec) error {
	x, y := spec.Encoding.X, spec.Encoding.Y
	if x == nil || y == nil || len(x.Sort) == 0 {
		return chart.ErrEmptyDataset
	}
	axisTitles(p, spec)
	pos := positions(x.Sort)
	colors := newCategorical(spec.Encoding.Color)

	series := func(f *frame.Frame, colorField string, fixed string) error {
		var names []string
		pts := map[string]plotter.XYs{}
		for i := 0; i < f.Len(); i++ {
			v, ok := f.Float(i, y.Field)
			if !ok {
				continue
			}
			xi, ok := pos[f.String(i, x.Field)]
			if !ok {
				continue
			}
			name := fixed
			if colorField != "" {
				name = f.String(i, colorField)
			}
			if _, seen := pts[name]; !seen {
				names = append(names, name)
			}
			pts[name] = append(pts[name], plotter.XY{X: float64(xi), Y: v})
		}
		for _, name := range names {
			xys := pts[name]
			sortXY(xys)
			l, s, err := plotter.NewLinePoints(xys)
			if err != nil {
				return err
			}
			clr := colors.color(name)
			l.Color, s.Color = clr, clr
			l.Width = vg.Points(2)
			p.Add(l, s)
			if name != "" && !legendHidden(spec.Encoding.Color) {
				p.Legend.Add(name, l, s)
			}
		}
		return nil
	}

	colorField := ""
	if spec.Encoding.Color != nil {
		colorField = spec.Encoding.Color.Field
	}
	if err := series(spec.Data, colorField, ""); err != nil {
		return err
	}
	if l, ok := spec.Layer(chart.RoleTotal); ok {
		data := spec.LayerData(l)
		if ch := l.Encoding.Color; ch != nil && ch.Field == "" {
			if s, ok := ch.Value.(string); ok {
				colors.fixed[chart.TotalCategory] = mustColor(s)
			}
		}
		if err := series(data, "", chart.TotalCategory); err != nil {
			return err
		}
	}
	p.NominalX(x.Sort...)
	return nil
}

func sortXY(xys plotter.XYs) {
	sort.SliceStable(xys, func(i, j int) bool { return xys[i].X < xys[j].X })
}

// drawBar draws grouped bars when the spec offsets by a colour field, stacked
// bars when it colours by some other nominal field, and one bar per category
// otherwise. Rows sharing a slot are summed.
func drawBar(p *plot.Plot, spec *chart.Spec) error {
	enc := spec.Encoding
	catCh, valCh := enc.X, enc.Y
	offset := enc.XOffset
	horizontal := false
	if enc.Y != nil && len(enc.Y.Sort) > 0 && enc.Y.Type != chart.Quantitative {
		catCh, valCh = enc.Y, enc.X
		offset = enc.YOffset
		horizontal = true
	}
	if catCh == nil || valCh == nil || len(catCh.Sort) == 0 {
		return chart.ErrEmptyDataset
	}
	f := spec.Data
	order := catCh.Sort
	pos := positions(order)
	colors := newCategorical(enc.Color)
	barWidth := vg.Points(20)

	if offset != nil {
		groups := groupOrder(enc.Color, f.Distinct(offset.Field))
		n := float64(len(groups))
		w := barWidth * vg.Length(1.6/n)
		for gi, g := range groups {
			vals := make(plotter.Values, len(order))
			for i := 0; i < f.Len(); i++ {
				if f.String(i, offset.Field) != g {
					continue
				}
				slot, ok := pos[f.String(i, catCh.Field)]
				if !ok {
					continue
				}
				if v, ok := f.Float(i, valCh.Field); ok {
					vals[slot] += v
				}
			}
			b, err := plotter.NewBarChart(vals, w)
			if err != nil {
				return err
			}
			b.Horizontal = horizontal
			b.Color = colors.color(g)
			b.LineStyle.Width = 0
			b.Offset = (vg.Length(gi) - vg.Length(n-1)/2) * w
			p.Add(b)
			if !legendHidden(enc.Color) {
				p.Legend.Add(g, b)
			}
		}
	} else if stacked(enc.Color, catCh.Field) {
		groups := groupOrder(enc.Color, f.Distinct(enc.Color.Field))
		sums := make([]float64, len(order))
		var below *plotter.BarChart
		for _, g := range groups {
			vals := make(plotter.Values, len(order))
			for i := 0; i < f.Len(); i++ {
				if f.String(i, enc.Color.Field) != g {
					continue
				}
				slot, ok := pos[f.String(i, catCh.Field)]
				if !ok {
					continue
				}
				if v, ok := f.Float(i, valCh.Field); ok {
					vals[slot] += v
					sums[slot] += v
				}
			}
			b, err := plotter.NewBarChart(vals, barWidth)
			if err != nil {
				return err
			}
			b.Horizontal = horizontal
			b.Color = colors.color(g)
			b.LineStyle.Width = 0
			if below != nil {
				b.StackOn(below)
			}
			below = b
			p.Add(b)
			if !legendHidden(enc.Color) {
				p.Legend.Add(g, b)
			}
		}
		if _, ok := spec.Layer(chart.RoleLabels); ok {
			if err := barLabels(p, order, sums, horizontal); err != nil {
				return err
			}
		}
	} else {
		sums := make([]float64, len(order))
		shade := make([]string, len(order))
		for i := 0; i < f.Len(); i++ {
			slot, ok := pos[f.String(i, catCh.Field)]
			if !ok {
				continue
			}
			if v, ok := f.Float(i, valCh.Field); ok {
				sums[slot] += v
			}
			if enc.Color != nil && shade[slot] == "" {
				shade[slot] = f.String(i, enc.Color.Field)
			}
		}
		for slot, v := range sums {
			b, err := plotter.NewBarChart(plotter.Values{v}, barWidth)
			if err != nil {
				return err
			}
			b.Horizontal = horizontal
			b.XMin = float64(slot)
			b.LineStyle.Width = 0
			if enc.Color != nil {
				b.Color = colors.color(shade[slot])
			} else {
				b.Color = colors.color("")
			}
			p.Add(b)
		}
		if _, ok := spec.Layer(chart.RoleLabels); ok {
			if err := barLabels(p, order, sums, horizontal); err != nil {
				return err
			}
		}
	}

	if horizontal {
		p.X.Label.Text = valCh.Title
		p.Y.Label.Text = catCh.Title
		p.NominalY(order...)
	} else {
		axisTitles(p, spec)
		p.NominalX(order...)
	}
	p.Legend.Left = horizontal
	return nil
}

func barLabels(p *plot.Plot, order []string, sums []float64, horizontal bool) error {
	var ll plotter.XYLabels
	for i := range order {
		xy := plotter.XY{X: float64(i), Y: sums[i]}
		if horizontal {
			xy = plotter.XY{X: sums[i], Y: float64(i)}
		}
		ll.XYs = append(ll.XYs, xy)
		ll.Labels = append(ll.Labels, chart.FormatCount(sums[i]))
	}
	labels, err := plotter.NewLabels(ll)
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		if horizontal {
			labels.TextStyle[i].YAlign = draw.YCenter
		} else {
			labels.TextStyle[i].XAlign = draw.XCenter
		}
	}
	if horizontal {
		labels.Offset = vg.Point{X: vg.Points(5)}
	} else {
		labels.Offset = vg.Point{Y: vg.Points(5)}
	}
	p.Add(labels)
	return nil
}

// groupOrder puts the colour scale's domain first, then any other groups.
// stacked reports whether bars split into one segment per colour category.
// Colouring by the category itself, or by a quantity, keeps one bar per slot.
func stacked(color *chart.Channel, category string) bool {
	return color != nil && color.Field != "" && color.Type == chart.Nominal && color.Field != category
}

func groupOrder(ch *chart.Channel, present []string) []string {
	has := map[string]bool{}
	for _, g := range present {
		has[g] = true
	}
	var out []string
	seen := map[string]bool{}
	if ch != nil && ch.Scale != nil {
		for _, d := range ch.Scale.Domain {
			if has[d] {
				out = append(out, d)
				seen[d] = true
			}
		}
	}
	for _, g := range present {
		if !seen[g] {
			out = append(out, g)
		}
	}
	return out
}

func drawPie(p *plot.Plot, spec *chart.Spec) error {
	enc := spec.Encoding
	if enc.Theta == nil || enc.Color == nil {
		return chart.ErrEmptyDataset
	}
	f := spec.Data
	colors := newCategorical(enc.Color)
	pc := &pieChart{innerFrac: innerFraction(spec.Props.InnerRadius, spec.Width, spec.Height)}
	for i := 0; i < f.Len(); i++ {
		v, ok := f.Float(i, enc.Theta.Field)
		if !ok || v <= 0 {
			continue
		}
		cat := f.String(i, enc.Color.Field)
		pc.values = append(pc.values, v)
		pc.colors = append(pc.colors, colors.color(cat))
		if !legendHidden(enc.Color) {
			label := cat
			if pct, ok := f.Float(i, chart.PercentageField); ok {
				label = fmt.Sprintf("%s (%.1f%%)", cat, pct)
			}
			p.Legend.Add(label, swatch{colors.color(cat)})
		}
	}
	if len(pc.values) == 0 {
		return chart.ErrEmptyDataset
	}
	if l, ok := spec.Layer(chart.RoleCenterTotal); ok {
		if d := spec.LayerData(l); d.Len() > 0 && l.Encoding.Text != nil {
			pc.center = d.String(0, l.Encoding.Text.Field)
		}
	}
	p.HideAxes()
	p.Add(pc)
	return nil
}

// innerFraction is the donut hole radius relative to the outer radius.
func innerFraction(inner float64, width, height int) float64 {
	half := float64(min(width, height)) / 2
	if inner <= 0 || half <= 0 {
		return 0
	}
	return math.Min(inner/half, 0.9)
}

func drawHeatmap(p *plot.Plot, spec *chart.Spec) error {
	enc := spec.Encoding
	if enc.X == nil || enc.Y == nil || enc.Color == nil {
		return chart.ErrEmptyDataset
	}
	axisTitles(p, spec)
	g := newGrid(spec.Data, enc.X.Field, enc.Y.Field, enc.Color.Field, enc.X.Sort, enc.Y.Sort)
	scheme := ""
	if enc.Color.Scale != nil {
		scheme = enc.Color.Scale.Scheme
	}
	hm := plotter.NewHeatMap(g, sequential(scheme, 64))
	switch {
	case hm.Min > hm.Max:
		return chart.ErrEmptyDataset
	case hm.Min == hm.Max:
		hm.Max = hm.Min + 1
	}
	p.Add(hm)
	p.NominalX(enc.X.Sort...)
	p.NominalY(g.rowNames()...)
	return nil
}

func drawBoxplot(p *plot.Plot, spec *chart.Spec) error {
	enc := spec.Encoding
	if enc.X == nil {
		return chart.ErrEmptyDataset
	}
	axisTitles(p, spec)
	bp, err := newBoxes(spec.Data, enc.X.Field, newCategorical(enc.Color))
	if err != nil {
		return err
	}
	p.Add(bp)
	p.NominalX(enc.X.Sort...)
	return nil
}
