package registry

// PresentMarker is the source value that marks a substance as involved.
const PresentMarker = "Y"

// columns is the ordered list of substance-involvement flag columns.
// Adding a substance here is a deliberate schema change: the loader requires
// every entry as a CSV column and every report reads the same list.
var columns = [...]string{
	"Heroin",
	"Heroin death certificate (DC)",
	"Cocaine",
	"Fentanyl",
	"Fentanyl Analogue",
	"Oxycodone",
	"Oxymorphone",
	"Ethanol",
	"Hydrocodone",
	"Benzodiazepine",
	"Methadone",
	"Meth/Amphetamine",
	"Amphet",
	"Tramad",
	"Hydromorphone",
	"Morphine (Not Heroin)",
	"Xylazine",
	"Gabapentin",
	"Opiate NOS",
	"Heroin/Morph/Codeine",
	"Other Opioid",
	"Any Opioid",
	"Other",
}

var index = func() map[string]int {
	m := make(map[string]int, len(columns))
	for i, c := range columns {
		m[c] = i
	}
	return m
}()

// Columns returns the drug columns in registry order. The slice is a copy.
func Columns() []string {
	out := make([]string, len(columns))
	copy(out, columns[:])
	return out
}

// Len returns the number of registered drug columns.
func Len() int { return len(columns) }

// Index returns the registry position of a drug column.
func Index(name string) (int, bool) {
	i, ok := index[name]
	return i, ok
}

// Contains reports whether name is a registered drug column.
func Contains(name string) bool {
	_, ok := index[name]
	return ok
}

// Name returns the drug column at registry position i.
func Name(i int) string { return columns[i] }
