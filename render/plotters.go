package render

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"drugdeaths/chart"
	"drugdeaths/frame"
)

// pieChart draws slices clockwise from twelve o'clock, centred in the data
// area. It implements plot.Plotter.
type pieChart struct {
	values    []float64
	colors    []color.Color
	innerFrac float64
	center    string
}

func (pc *pieChart) Plot(c draw.Canvas, plt *plot.Plot) {
	var total float64
	for _, v := range pc.values {
		total += v
	}
	if total <= 0 {
		return
	}
	mid := c.Center()
	outer := 0.45 * math.Min(float64(c.Max.X-c.Min.X), float64(c.Max.Y-c.Min.Y))
	r, ir := vg.Length(outer), vg.Length(outer*pc.innerFrac)

	start := math.Pi / 2
	for i, v := range pc.values {
		sweep := 2 * math.Pi * v / total
		var path vg.Path
		path.Move(polar(mid, r, start))
		path.Arc(mid, r, start, -sweep)
		if ir > 0 {
			path.Line(polar(mid, ir, start-sweep))
			path.Arc(mid, ir, start-sweep, sweep)
		} else {
			path.Line(mid)
		}
		path.Close()
		c.SetColor(pc.colors[i])
		c.Fill(path)
		start -= sweep
	}

	if pc.center != "" {
		sty := plt.Title.TextStyle
		sty.XAlign = draw.XCenter
		sty.YAlign = draw.YCenter
		c.FillText(sty, mid, pc.center)
	}
}

func polar(o vg.Point, r vg.Length, angle float64) vg.Point {
	return vg.Point{
		X: o.X + r*vg.Length(math.Cos(angle)),
		Y: o.Y + r*vg.Length(math.Sin(angle)),
	}
}

// swatch is a legend thumbnail filled with one colour.
type swatch struct{ color color.Color }

func (s swatch) Thumbnail(c *draw.Canvas) {
	c.FillPolygon(s.color, []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	})
}

// grid adapts long-form cells to plotter.GridXYZ. Row 0 is the last y
// category so the first one is drawn at the top.
type grid struct {
	xs, ys []string
	z      [][]float64
}

func newGrid(f *frame.Frame, x, y, value string, xOrder, yOrder []string) *grid {
	g := &grid{xs: xOrder, ys: yOrder, z: make([][]float64, len(xOrder))}
	for c := range g.z {
		g.z[c] = make([]float64, len(yOrder))
		for r := range g.z[c] {
			g.z[c][r] = math.NaN()
		}
	}
	xpos, ypos := positions(xOrder), positions(yOrder)
	for i := 0; i < f.Len(); i++ {
		c, ok := xpos[f.String(i, x)]
		if !ok {
			continue
		}
		r, ok := ypos[f.String(i, y)]
		if !ok {
			continue
		}
		if v, ok := f.Float(i, value); ok {
			g.z[c][len(yOrder)-1-r] = v
		}
	}
	return g
}

func (g *grid) Dims() (c, r int)   { return len(g.xs), len(g.ys) }
func (g *grid) Z(c, r int) float64 { return g.z[c][r] }
func (g *grid) X(c int) float64    { return float64(c) }
func (g *grid) Y(r int) float64    { return float64(r) }

func (g *grid) rowNames() []string {
	out := make([]string, len(g.ys))
	for i, y := range g.ys {
		out[len(g.ys)-1-i] = y
	}
	return out
}

type box struct {
	min, q1, median, q3, max float64
	color                    color.Color
}

// boxes draws precomputed five-number summaries, one per axis slot, with
// whiskers at the extremes.
type boxes struct {
	items []box
	width vg.Length
}

func newBoxes(f *frame.Frame, category string, colors *categorical) (*boxes, error) {
	bp := &boxes{width: vg.Points(24)}
	for i := 0; i < f.Len(); i++ {
		var b box
		for _, fv := range []struct {
			col string
			dst *float64
		}{
			{chart.BoxMin, &b.min}, {chart.BoxQ1, &b.q1}, {chart.BoxMedian, &b.median},
			{chart.BoxQ3, &b.q3}, {chart.BoxMax, &b.max},
		} {
			v, ok := f.Float(i, fv.col)
			if !ok {
				return nil, fmt.Errorf("render: boxplot row %d has no %s", i, fv.col)
			}
			*fv.dst = v
		}
		b.color = colors.color(f.String(i, category))
		bp.items = append(bp.items, b)
	}
	if len(bp.items) == 0 {
		return nil, chart.ErrEmptyDataset
	}
	return bp, nil
}

func (bp *boxes) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	line := draw.LineStyle{Color: color.Black, Width: vg.Points(1)}
	half := bp.width / 2
	for i, b := range bp.items {
		x := trX(float64(i))
		q1, q3 := trY(b.q1), trY(b.q3)
		c.StrokeLine2(line, x, trY(b.min), x, q1)
		c.StrokeLine2(line, x, q3, x, trY(b.max))
		c.StrokeLine2(line, x-half/2, trY(b.min), x+half/2, trY(b.min))
		c.StrokeLine2(line, x-half/2, trY(b.max), x+half/2, trY(b.max))
		rect := []vg.Point{{X: x - half, Y: q1}, {X: x - half, Y: q3}, {X: x + half, Y: q3}, {X: x + half, Y: q1}}
		c.FillPolygon(b.color, rect)
		c.StrokeLines(line, append(rect, rect[0]))
		med := trY(b.median)
		c.StrokeLine2(draw.LineStyle{Color: color.White, Width: vg.Points(2)}, x-half, med, x+half, med)
	}
}

func (bp *boxes) DataRange() (xmin, xmax, ymin, ymax float64) {
	ymin, ymax = math.Inf(1), math.Inf(-1)
	for _, b := range bp.items {
		ymin = math.Min(ymin, b.min)
		ymax = math.Max(ymax, b.max)
	}
	return -0.5, float64(len(bp.items)) - 0.5, ymin, ymax
}
