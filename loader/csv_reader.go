package loader

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"drugdeaths/registry"
)

// Source columns. Keys into colIdx are these names passed through headerKey.
const (
	colID                  = "ID"
	colDate                = "Date"
	colAge                 = "Age"
	colSex                 = "Sex"
	colRace                = "Race"
	colResidenceCity       = "Residence City"
	colResidenceCounty     = "Residence County"
	colResidenceState      = "Residence State"
	colDeathCity           = "Death City"
	colDeathCounty         = "Death County"
	colLocation            = "Location"
	colInjuryPlace         = "Injury Place"
	colDescriptionOfInjury = "Description of Injury"
	colCauseOfDeath        = "Cause of Death"
	colDeathCityGeo        = "DeathCityGeo"
)

var requiredColumns = []string{colDate, colAge, colSex, colRace, colDeathCounty, colDeathCityGeo}

// rawRow is one CSV data row with its cells picked out by column but not yet
// normalized. Flags are already binarized.
type rawRow struct {
	row int64

	id              string
	date            string
	age             string
	sex             string
	race            string
	residenceCity   string
	residenceCounty string
	residenceState  string
	deathCity       string
	deathCounty     string
	location        string
	injuryPlace     string
	injury          string
	cause           string
	geo             string
	flags           []uint8
}

// CSVReader streams the deaths CSV one data row at a time.
type CSVReader struct {
	file    io.Closer
	csv     *csv.Reader
	rowNum  int64
	colIdx  map[string]int // headerKey(name) → column index
	flagIdx []int // registry order → column index, -1 if absent
}

// NewCSVReader opens path and reads its header row.
func NewCSVReader(path string) (*CSVReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := newCSVReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

func newCSVReader(src io.Reader) (*CSVReader, error) {
	bufReader := bufio.NewReaderSize(src, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	r := &CSVReader{
		csv:    reader,
		colIdx: make(map[string]int),
	}
	if err := r.readHeaders(); err != nil {
		return nil, err
	}
	return r, nil
}

// headerKey folds a column name so that "Death County", "DeathCounty" and
// "death_county" address the same column.
func headerKey(h string) string {
	h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(h))
}

func (r *CSVReader) readHeaders() error {
	headers, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("read header row: empty file")
		}
		return fmt.Errorf("read header row: %w", err)
	}
	r.rowNum++
	for i, h := range headers {
		k := headerKey(h)
		if _, dup := r.colIdx[k]; !dup {
			r.colIdx[k] = i
		}
	}

	r.flagIdx = make([]int, registry.Len())
	for i, name := range registry.Columns() {
		r.flagIdx[i] = -1
		if j, ok := r.colIdx[headerKey(name)]; ok {
			r.flagIdx[i] = j
		}
	}
	return nil
}

// Missing lists the required columns, including every registry column, that
// the header lacks.
func (r *CSVReader) Missing() []string {
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := r.colIdx[headerKey(c)]; !ok {
			missing = append(missing, c)
		}
	}
	for i, name := range registry.Columns() {
		if r.flagIdx[i] < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// Next returns the next data row, or io.EOF when done.
func (r *CSVReader) Next() (rawRow, error) {
	for {
		row, err := r.csv.Read()
		if err != nil {
			return rawRow{}, err
		}
		r.rowNum++

		// Skip empty rows
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		return r.parseRow(row), nil
	}
}

func (r *CSVReader) parseRow(row []string) rawRow {
	raw := rawRow{
		row:             r.rowNum,
		id:              valAt(row, r.colIdx, colID),
		date:            valAt(row, r.colIdx, colDate),
		age:             valAt(row, r.colIdx, colAge),
		sex:             valAt(row, r.colIdx, colSex),
		race:            valAt(row, r.colIdx, colRace),
		residenceCity:   valAt(row, r.colIdx, colResidenceCity),
		residenceCounty: valAt(row, r.colIdx, colResidenceCounty),
		residenceState:  valAt(row, r.colIdx, colResidenceState),
		deathCity:       valAt(row, r.colIdx, colDeathCity),
		deathCounty:     valAt(row, r.colIdx, colDeathCounty),
		location:        valAt(row, r.colIdx, colLocation),
		injuryPlace:     valAt(row, r.colIdx, colInjuryPlace),
		injury:          valAt(row, r.colIdx, colDescriptionOfInjury),
		cause:           valAt(row, r.colIdx, colCauseOfDeath),
		geo:             valAt(row, r.colIdx, colDeathCityGeo),
		flags:           make([]uint8, len(r.flagIdx)),
	}
	for i, j := range r.flagIdx {
		if j >= 0 && j < len(row) {
			raw.flags[i] = BinarizeFlag(row[j])
		}
	}
	return raw
}

// RowNum returns the current CSV row number (1-based, header included).
func (r *CSVReader) RowNum() int64 {
	return r.rowNum
}

// Close releases the file opened by NewCSVReader.
func (r *CSVReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// valAt returns the trimmed cell for col, sanitized to valid UTF-8, or "" if
// the column is absent or the row is short.
func valAt(row []string, idx map[string]int, col string) string {
	if i, ok := idx[headerKey(col)]; ok && i < len(row) {
		return strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
	}
	return ""
}
