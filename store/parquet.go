// Package store persists a loaded table as Parquet files and PostgreSQL
// tables.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"

	"drugdeaths/loader"
	"drugdeaths/registry"
)

const dateLayout = "2006-01-02"

// Row is the flat Parquet form of a loader.Record. Substances lists the
// registry columns flagged for the death, in registry order.
type Row struct {
	ID         string `parquet:"id"`
	Date       string `parquet:"date"` // YYYY-MM-DD
	Year       int32  `parquet:"year"`
	Month      int32  `parquet:"month"`
	Day        int32  `parquet:"day"`
	Quarter    int32  `parquet:"quarter"`
	DayOfWeek  int32  `parquet:"day_of_week"` // 0=Monday
	Age        int32  `parquet:"age"`
	AgeImputed bool   `parquet:"age_imputed"`
	Sex        string `parquet:"sex"`
	Race       string `parquet:"race"`

	ResidenceCity   string `parquet:"residence_city"`
	ResidenceCounty string `parquet:"residence_county"`
	ResidenceState  string `parquet:"residence_state"`
	DeathCity       string `parquet:"death_city"`
	DeathCounty     string `parquet:"death_county"`

	Location            string `parquet:"location"`
	InjuryPlace         string `parquet:"injury_place"`
	DescriptionOfInjury string `parquet:"description_of_injury"`
	CauseOfDeath        string `parquet:"cause_of_death"`

	DeathCityGeo string   `parquet:"death_city_geo"`
	Latitude     *float64 `parquet:"latitude,optional"`
	Longitude    *float64 `parquet:"longitude,optional"`

	Substances []string `parquet:"substances,list,optional"`
}

// FromRecord flattens r.
func FromRecord(r loader.Record) Row {
	row := Row{
		ID:                  r.ID,
		Date:                r.Date.Format(dateLayout),
		Year:                int32(r.Year),
		Month:               int32(r.Month),
		Day:                 int32(r.Day),
		Quarter:             int32(r.Quarter),
		DayOfWeek:           int32(r.DayOfWeek),
		Age:                 int32(r.Age),
		AgeImputed:          r.AgeImputed,
		Sex:                 r.Sex,
		Race:                r.Race,
		ResidenceCity:       r.ResidenceCity,
		ResidenceCounty:     r.ResidenceCounty,
		ResidenceState:      r.ResidenceState,
		DeathCity:           r.DeathCity,
		DeathCounty:         r.DeathCounty,
		Location:            r.Location,
		InjuryPlace:         r.InjuryPlace,
		DescriptionOfInjury: r.DescriptionOfInjury,
		CauseOfDeath:        r.CauseOfDeath,
		DeathCityGeo:        r.DeathCityGeo,
		Latitude:            r.Latitude,
		Longitude:           r.Longitude,
	}
	row.Substances = substances(r)
	return row
}

func substances(r loader.Record) []string {
	var out []string
	for i, f := range r.Flags {
		if f == 1 && i < registry.Len() {
			out = append(out, registry.Name(i))
		}
	}
	return out
}

// Record rebuilds the loader.Record. Calendar fields are derived from Date
// again rather than trusted.
func (row Row) Record() (loader.Record, error) {
	date, err := time.Parse(dateLayout, row.Date)
	if err != nil {
		return loader.Record{}, fmt.Errorf("row %s: date: %w", row.ID, err)
	}
	r := loader.Record{
		ID:                  row.ID,
		Date:                date,
		Year:                date.Year(),
		Month:               int(date.Month()),
		Day:                 date.Day(),
		Quarter:             loader.Quarter(int(date.Month())),
		DayOfWeek:           loader.DayOfWeek(date),
		Age:                 int(row.Age),
		AgeImputed:          row.AgeImputed,
		Sex:                 row.Sex,
		Race:                row.Race,
		ResidenceCity:       row.ResidenceCity,
		ResidenceCounty:     row.ResidenceCounty,
		ResidenceState:      row.ResidenceState,
		DeathCity:           row.DeathCity,
		DeathCounty:         row.DeathCounty,
		Location:            row.Location,
		InjuryPlace:         row.InjuryPlace,
		DescriptionOfInjury: row.DescriptionOfInjury,
		CauseOfDeath:        row.CauseOfDeath,
		DeathCityGeo:        row.DeathCityGeo,
		Flags:               make([]uint8, registry.Len()),
	}
	if row.Latitude != nil && row.Longitude != nil {
		lat, lon := *row.Latitude, *row.Longitude
		r.Latitude, r.Longitude = &lat, &lon
	}
	for _, s := range row.Substances {
		i, ok := registry.Index(s)
		if !ok {
			return loader.Record{}, fmt.Errorf("row %s: unknown substance %q", row.ID, s)
		}
		r.Flags[i] = 1
	}
	return r, nil
}

// writerOptions keep export files small and let readers prune pages on the
// date, county and age statistics.
var writerOptions = []parquet.WriterOption{
	parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
	parquet.PageBufferSize(8 * 1024),
	parquet.WriteBufferSize(64 * 1024 * 1024),
	parquet.DataPageStatistics(true),
	parquet.CreatedBy("drugdeaths", "1.0", ""),
}

// Writer streams death rows into one Parquet file. Rows are buffered into
// row groups until Close.
type Writer struct {
	file   *os.File
	writer *parquet.GenericWriter[Row]
	rows   int
}

// NewWriter truncates or creates path.
func NewWriter(path string) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}
	return &Writer{file: file, writer: parquet.NewGenericWriter[Row](file, writerOptions...)}, nil
}

// Write appends rows. A partial write still counts the rows that landed.
func (w *Writer) Write(rows []Row) (int, error) {
	n, err := w.writer.Write(rows)
	w.rows += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close writes the footer. The file is closed even when that fails.
func (w *Writer) Close() error {
	err := w.writer.Close()
	if cerr := w.file.Close(); err == nil && cerr != nil {
		return fmt.Errorf("close parquet file: %w", cerr)
	}
	if err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// Count is the number of rows accepted so far.
func (w *Writer) Count() int { return w.rows }

// WriteParquet writes every record of t to path in batches.
func WriteParquet(t *loader.Table, path string) (int, error) {
	w, err := NewWriter(path)
	if err != nil {
		return 0, err
	}
	const batch = 8192
	buf := make([]Row, 0, batch)
	var werr error
	t.Each(func(_ int, r loader.Record) bool {
		buf = append(buf, FromRecord(r))
		if len(buf) == batch {
			if _, werr = w.Write(buf); werr != nil {
				return false
			}
			buf = buf[:0]
		}
		return true
	})
	if werr == nil && len(buf) > 0 {
		_, werr = w.Write(buf)
	}
	if cerr := w.Close(); werr == nil {
		werr = cerr
	}
	return w.Count(), werr
}

// ReadParquet reads back a file written by Writer.
func ReadParquet(path string) ([]loader.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row](f)
	defer reader.Close()

	out := make([]loader.Record, 0, reader.NumRows())
	buf := make([]Row, 1024)
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			r, err := buf[i].Record()
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read parquet: %w", readErr)
		}
	}
	return out, nil
}
