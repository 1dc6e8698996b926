package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"drugdeaths/frame"
	"drugdeaths/registry"
)

// Field names of the normalized table.
const (
	FieldID                  = colID
	FieldDate                = colDate
	FieldAge                 = colAge
	FieldYear                = "Year"
	FieldMonth               = "Month"
	FieldDay                 = "Day"
	FieldQuarter             = "Quarter"
	FieldDayOfWeek           = "DayOfWeek"
	FieldSex                 = colSex
	FieldRace                = colRace
	FieldResidenceCity       = colResidenceCity
	FieldResidenceCounty     = colResidenceCounty
	FieldResidenceState      = colResidenceState
	FieldDeathCity           = colDeathCity
	FieldDeathCounty         = colDeathCounty
	FieldLocation            = colLocation
	FieldInjuryPlace         = colInjuryPlace
	FieldDescriptionOfInjury = colDescriptionOfInjury
	FieldCauseOfDeath        = colCauseOfDeath
	FieldDeathCityGeo        = colDeathCityGeo
	FieldLatitude            = "Latitude"
	FieldLongitude           = "Longitude"
)

const dateFormat = "2006-01-02"

// Table is the normalized dataset. It is never modified after Load returns
// and is safe for concurrent readers.
type Table struct {
	records    []Record
	ageFill    int
	imputed    int
	geolocated []int
}

func newTable(records []Record, ageFill, imputed int) *Table {
	t := &Table{records: records, ageFill: ageFill, imputed: imputed}
	for i := range records {
		if records[i].Geolocated() {
			t.geolocated = append(t.geolocated, i)
		}
	}
	return t
}

// NewTable builds a table from already-normalized records. The records are
// copied.
func NewTable(records []Record) *Table {
	cp := make([]Record, len(records))
	imputed := 0
	for i := range records {
		cp[i] = records[i].clone()
		if cp[i].AgeImputed {
			imputed++
		}
	}
	return newTable(cp, 0, imputed)
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.records) }

// Record returns a copy of record i.
func (t *Table) Record(i int) Record { return t.records[i].clone() }

// Each calls fn with a copy of every record in order until fn returns false.
func (t *Table) Each(fn func(i int, r Record) bool) {
	for i := range t.records {
		if !fn(i, t.records[i].clone()) {
			return
		}
	}
}

// Geolocated returns the indices of records that carry coordinates.
func (t *Table) Geolocated() []int { return append([]int(nil), t.geolocated...) }

// AgeFill returns the value imputed for missing ages.
func (t *Table) AgeFill() int { return t.ageFill }

// Columns returns the field names in presentation order: identity and date
// first, the derived calendar fields at positions 3-7, then demographics,
// places, the registry flags and the coordinates.
func Columns() []string {
	cols := []string{
		FieldID, FieldDate, FieldAge,
		FieldYear, FieldMonth, FieldDay, FieldQuarter, FieldDayOfWeek,
		FieldSex, FieldRace,
		FieldResidenceCity, FieldResidenceCounty, FieldResidenceState,
		FieldDeathCity, FieldDeathCounty,
		FieldLocation, FieldInjuryPlace, FieldDescriptionOfInjury, FieldCauseOfDeath,
		FieldDeathCityGeo,
	}
	cols = append(cols, registry.Columns()...)
	return append(cols, FieldLatitude, FieldLongitude)
}

// Columns returns the table's field names in presentation order.
func (t *Table) Columns() []string { return Columns() }

func (r *Record) values() []any {
	vals := []any{
		r.ID, r.Date.Format(dateFormat), r.Age,
		r.Year, r.Month, r.Day, r.Quarter, r.DayOfWeek,
		r.Sex, r.Race,
		r.ResidenceCity, r.ResidenceCounty, r.ResidenceState,
		r.DeathCity, r.DeathCounty,
		r.Location, r.InjuryPlace, r.DescriptionOfInjury, r.CauseOfDeath,
		r.DeathCityGeo,
	}
	for _, f := range r.Flags {
		vals = append(vals, f)
	}
	return append(vals, r.Latitude, r.Longitude)
}

// Frame returns a fresh frame holding every record in presentation order.
func (t *Table) Frame() *frame.Frame {
	f := frame.New(Columns()...)
	for i := range t.records {
		if err := f.Append(t.records[i].values()...); err != nil {
			// values() only produces supported cell types
			panic(fmt.Sprintf("loader: frame row %d: %v", i, err))
		}
	}
	return f
}

// WriteCSV writes the normalized table, header first. Missing coordinates
// are empty cells.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, 0, len(Columns()))
	for i := range t.records {
		row = row[:0]
		for _, v := range t.records[i].values() {
			row = append(row, cell(v))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case uint8:
		return strconv.Itoa(int(x))
	case *float64:
		if x == nil {
			return ""
		}
		return strconv.FormatFloat(*x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Summary describes a loaded table.
type Summary struct {
	Rows        int
	Geolocated  int
	ImputedAges int
	AgeFill     int
	AgeMin      int
	AgeMax      int
	AgeMean     float64
	AgeStdDev   float64
	// Nulls counts empty cells per field, for fields with at least one.
	Nulls map[string]int
}

// Summary computes row counts, empty-cell counts and age statistics.
func (t *Table) Summary() Summary {
	s := Summary{
		Rows:        len(t.records),
		Geolocated:  len(t.geolocated),
		ImputedAges: t.imputed,
		AgeFill:     t.ageFill,
		Nulls:       map[string]int{},
	}
	if len(t.records) == 0 {
		return s
	}
	cols := Columns()
	ages := make([]float64, len(t.records))
	s.AgeMin, s.AgeMax = t.records[0].Age, t.records[0].Age
	for i := range t.records {
		r := &t.records[i]
		ages[i] = float64(r.Age)
		s.AgeMin = min(s.AgeMin, r.Age)
		s.AgeMax = max(s.AgeMax, r.Age)
		for j, v := range r.values() {
			if cell(v) == "" {
				s.Nulls[cols[j]]++
			}
		}
	}
	s.AgeMean, s.AgeStdDev = stat.MeanStdDev(ages, nil)
	return s
}
