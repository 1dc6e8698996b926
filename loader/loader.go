// Package loader reads the accidental drug-death CSV and turns it into an
// immutable normalized Table.
//
// Normalization never drops a row. Dates must be MM/DD/YYYY (an optional time
// of day is ignored); an unparseable or empty date fails the whole load with
// a DateParseError. Missing ages are imputed with the rounded mean of the
// ages present in the same file. Missing Sex, Race and Death County become
// "Unknown". Substance columns from the registry are binarized to 0/1 and the
// DeathCityGeo "(lat, lon)" string is split into coordinates.
package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Unknown replaces a missing Sex, Race or Death County.
const Unknown = "Unknown"

// Load reads and normalizes the CSV at path.
func Load(path string) (*Table, error) {
	r, err := NewCSVReader(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer r.Close()
	return parseRows(r, path)
}

// Parse normalizes CSV data read from src. name is used in error messages
// only.
func Parse(src io.Reader, name string) (*Table, error) {
	r, err := newCSVReader(src)
	if err != nil {
		return nil, &DataLoadError{Path: name, Err: err}
	}
	return parseRows(r, name)
}

func parseRows(r *CSVReader, name string) (*Table, error) {
	if missing := r.Missing(); len(missing) > 0 {
		return nil, &DataLoadError{Path: name, Missing: missing}
	}

	var (
		records  []Record
		ages     []float64 // parsed age per record, NaN if missing
		ageSum   float64
		ageCount int
	)
	for {
		raw, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DataLoadError{Path: name, Row: r.RowNum() + 1, Err: err}
		}

		rec, err := normalizeRow(raw)
		if err != nil {
			var de *DateParseError
			if errors.As(err, &de) {
				return nil, &DataLoadError{Path: name, Row: raw.row, Column: colDate, Err: err}
			}
			return nil, &DataLoadError{Path: name, Row: raw.row, Err: err}
		}

		age, ok, err := parseAge(raw.age)
		if err != nil {
			return nil, &DataLoadError{Path: name, Row: raw.row, Column: colAge, Err: fmt.Errorf("parse age %q: %w", raw.age, err)}
		}
		if ok {
			ageSum += age
			ageCount++
			ages = append(ages, age)
		} else {
			ages = append(ages, math.NaN())
		}
		records = append(records, rec)
	}

	if len(records) > 0 && ageCount == 0 {
		return nil, &DataLoadError{Path: name, Column: colAge, Err: ErrNoAges}
	}

	fill := 0
	if ageCount > 0 {
		fill = int(math.Round(ageSum / float64(ageCount)))
	}
	imputed := 0
	for i := range records {
		if math.IsNaN(ages[i]) {
			records[i].Age = fill
			records[i].AgeImputed = true
			imputed++
			continue
		}
		records[i].Age = int(math.Round(ages[i]))
	}

	return newTable(records, fill, imputed), nil
}

func normalizeRow(raw rawRow) (Record, error) {
	date, err := ParseDate(raw.date)
	if err != nil {
		return Record{}, &DateParseError{Row: raw.row, Value: raw.date, Err: err}
	}

	rec := Record{
		ID:                  raw.id,
		Date:                date,
		Sex:                 orUnknown(raw.sex),
		Race:                orUnknown(raw.race),
		ResidenceCity:       raw.residenceCity,
		ResidenceCounty:     raw.residenceCounty,
		ResidenceState:      raw.residenceState,
		DeathCity:           raw.deathCity,
		DeathCounty:         orUnknown(raw.deathCounty),
		Location:            raw.location,
		InjuryPlace:         raw.injuryPlace,
		DescriptionOfInjury: raw.injury,
		CauseOfDeath:        raw.cause,
		DeathCityGeo:        raw.geo,
		Flags:               raw.flags,
	}
	rec.derive()
	rec.Latitude, rec.Longitude = ExtractCoordinates(raw.geo)
	return rec, nil
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
