package chart

// TotalCategory tags the synthetic grand-total series.
const TotalCategory = "Total"

const totalColorValue = "black"

// Palette is a fixed category-to-colour mapping.
type Palette struct {
	Domain []string
	Range  []string
}

// WithTotal returns the palette extended with the grand-total colour.
func (p Palette) WithTotal() Palette {
	return Palette{
		Domain: append(append([]string(nil), p.Domain...), TotalCategory),
		Range:  append(append([]string(nil), p.Range...), totalColorValue),
	}
}

// Color returns the colour of category c.
func (p Palette) Color(c string) (string, bool) {
	for i, d := range p.Domain {
		if d == c {
			return p.Range[i], true
		}
	}
	return "", false
}

func (p Palette) scale() *Scale {
	return &Scale{
		Domain: append([]string(nil), p.Domain...),
		Range:  append([]string(nil), p.Range...),
	}
}

// knownPalettes are the fields whose categories always render in the same
// colours, so legends agree across every chart of a report.
var knownPalettes = map[string]Palette{
	"Sex": {
		Domain: []string{"Female", "Male"},
		Range:  []string{"#e377c2", "#1f77b4"},
	},
}

// KnownPalette returns the fixed palette for field, if it has one.
func KnownPalette(field string) (Palette, bool) {
	p, ok := knownPalettes[field]
	if !ok {
		return Palette{}, false
	}
	return Palette{
		Domain: append([]string(nil), p.Domain...),
		Range:  append([]string(nil), p.Range...),
	}, true
}

// Default schemes.
const (
	SchemeCategorical = "category20"
	SchemeSequential  = "viridis"
)
