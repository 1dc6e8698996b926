package loader

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drugdeaths/registry"
)

var fixtureHeader = append([]string{
	"ID", "Date", "Age", "Sex", "Race", "Death City", "Death County",
	"Location", "Cause of Death", "DeathCityGeo",
}, registry.Columns()...)

// fixtureRow builds one data row; drugs lists the registry columns marked "Y".
func fixtureRow(id, date, age, sex, race, county, geo string, drugs ...string) []string {
	row := []string{id, date, age, sex, race, "HARTFORD", county, "Residence", "Acute Fentanyl Intoxication", geo}
	marked := map[string]bool{}
	for _, d := range drugs {
		marked[d] = true
	}
	for _, c := range registry.Columns() {
		if marked[c] {
			row = append(row, "Y")
		} else {
			row = append(row, "")
		}
	}
	return row
}

// writeFixtureCSV writes header and rows to a temp CSV file and returns its
// path.
func writeFixtureCSV(t *testing.T, header []string, rows ...[]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drug_deaths.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
	return path
}

func standardFixture(t *testing.T) string {
	t.Helper()
	return writeFixtureCSV(t, fixtureHeader,
		fixtureRow("12-0001", "01/06/2020", "20", "Male", "White", "HARTFORD", "Hartford, CT\n(41.76, -72.69)", "Heroin", "Fentanyl"),
		fixtureRow("13-0002", "05/17/2019 12:00:00 AM", "30", "", "", "", "(unknown)", "Cocaine"),
		fixtureRow("14-0003", "12/31/2021", "", "Female", "Black", "NEW HAVEN", ""),
	)
}

func TestLoadNormalizesRecords(t *testing.T) {
	table, err := Load(standardFixture(t))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	first := table.Record(0)
	assert.Equal(t, "12-0001", first.ID)
	assert.Equal(t, 2020, first.Year)
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, 6, first.Day)
	assert.Equal(t, 1, first.Quarter)
	assert.Equal(t, 0, first.DayOfWeek)
	assert.Equal(t, "January", first.MonthName())
	assert.Equal(t, "Monday", first.WeekdayName())
	require.True(t, first.Geolocated())
	assert.InDelta(t, 41.76, *first.Latitude, 1e-9)
	assert.InDelta(t, -72.69, *first.Longitude, 1e-9)
	heroin, ok := first.Flag("Heroin")
	require.True(t, ok)
	assert.Equal(t, uint8(1), heroin)
	cocaine, _ := first.Flag("Cocaine")
	assert.Equal(t, uint8(0), cocaine)

	second := table.Record(1)
	assert.Equal(t, Unknown, second.Sex)
	assert.Equal(t, Unknown, second.Race)
	assert.Equal(t, Unknown, second.DeathCounty)
	assert.Equal(t, 2, second.Quarter)
	assert.Equal(t, 4, second.DayOfWeek)
	assert.Nil(t, second.Latitude)
	assert.Nil(t, second.Longitude)

	third := table.Record(2)
	assert.Equal(t, 25, third.Age)
	assert.True(t, third.AgeImputed)
	assert.Equal(t, 25, table.AgeFill())
	assert.Equal(t, []int{0}, table.Geolocated())
}

func TestLoadInvariantsHoldForEveryRecord(t *testing.T) {
	table, err := Load(standardFixture(t))
	require.NoError(t, err)
	table.Each(func(_ int, r Record) bool {
		require.Len(t, r.Flags, registry.Len())
		for _, f := range r.Flags {
			assert.Contains(t, []uint8{0, 1}, f)
		}
		assert.GreaterOrEqual(t, r.Age, 0)
		assert.NotEmpty(t, r.Sex)
		assert.NotEmpty(t, r.Race)
		assert.NotEmpty(t, r.DeathCounty)
		assert.Equal(t, r.Latitude == nil, r.Longitude == nil)
		assert.Equal(t, Quarter(r.Month), r.Quarter)
		return true
	})
}

func TestRecordIsACopy(t *testing.T) {
	table, err := Load(standardFixture(t))
	require.NoError(t, err)
	r := table.Record(0)
	r.Flags[0] = 0
	*r.Latitude = 0
	again := table.Record(0)
	assert.Equal(t, uint8(1), again.Flags[0])
	assert.InDelta(t, 41.76, *again.Latitude, 1e-9)
}

func TestLoadMissingColumns(t *testing.T) {
	header := []string{"Date", "Age", "Sex"}
	path := writeFixtureCSV(t, header, []string{"01/01/2020", "40", "Male"})

	_, err := Load(path)
	var le *DataLoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Missing, "Race")
	assert.Contains(t, le.Missing, "Death County")
	assert.Contains(t, le.Missing, "DeathCityGeo")
	assert.Contains(t, le.Missing, "Heroin")
	assert.Len(t, le.Missing, 3+registry.Len())
}

func TestLoadHeaderMatchingIgnoresCaseAndSeparators(t *testing.T) {
	header := append([]string(nil), fixtureHeader...)
	header[6] = "death_county"
	header[9] = "DEATHCITYGEO"
	header[len(header)-1] = "other"
	path := writeFixtureCSV(t, header,
		fixtureRow("1", "03/04/2018", "51", "Male", "White", "TOLLAND", "(41.9, -72.3)", "Other"))

	table, err := Load(path)
	require.NoError(t, err)
	r := table.Record(0)
	assert.Equal(t, "TOLLAND", r.DeathCounty)
	other, _ := r.Flag("Other")
	assert.Equal(t, uint8(1), other)
}

func TestLoadBadDateFailsLoudly(t *testing.T) {
	for _, date := range []string{"2020-01-06", "13/01/2020", ""} {
		t.Run(date, func(t *testing.T) {
			path := writeFixtureCSV(t, fixtureHeader,
				fixtureRow("1", "01/06/2020", "20", "Male", "White", "HARTFORD", ""),
				fixtureRow("2", date, "20", "Male", "White", "HARTFORD", ""))

			_, err := Load(path)
			var le *DataLoadError
			require.ErrorAs(t, err, &le)
			var de *DateParseError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, int64(3), de.Row)
			assert.Equal(t, date, de.Value)
			assert.Equal(t, "Date", le.Column)
		})
	}
}

func TestLoadAgeErrors(t *testing.T) {
	t.Run("negative", func(t *testing.T) {
		path := writeFixtureCSV(t, fixtureHeader, fixtureRow("1", "01/06/2020", "-3", "Male", "White", "X", ""))
		_, err := Load(path)
		var le *DataLoadError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "Age", le.Column)
	})
	t.Run("not a number", func(t *testing.T) {
		path := writeFixtureCSV(t, fixtureHeader, fixtureRow("1", "01/06/2020", "forty", "Male", "White", "X", ""))
		_, err := Load(path)
		assert.Error(t, err)
	})
	t.Run("all missing", func(t *testing.T) {
		path := writeFixtureCSV(t, fixtureHeader, fixtureRow("1", "01/06/2020", "", "Male", "White", "X", ""))
		_, err := Load(path)
		assert.True(t, errors.Is(err, ErrNoAges))
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	var le *DataLoadError
	require.ErrorAs(t, err, &le)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseSkipsBOMAndBlankLines(t *testing.T) {
	var b strings.Builder
	b.WriteString("\xEF\xBB\xBF")
	w := csv.NewWriter(&b)
	require.NoError(t, w.Write(fixtureHeader))
	require.NoError(t, w.Write(fixtureRow("1", "01/06/2020", "44", "Male", "White", "X", "")))
	w.Flush()
	b.WriteString("\n\n")

	table, err := Parse(strings.NewReader(b.String()), "inline")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestColumnsPresentationOrder(t *testing.T) {
	cols := Columns()
	assert.Equal(t, []string{"Year", "Month", "Day", "Quarter", "DayOfWeek"}, cols[3:8])
	assert.Equal(t, "Longitude", cols[len(cols)-1])
	assert.Len(t, cols, 20+registry.Len()+2)
}

func TestTableFrame(t *testing.T) {
	table, err := Load(standardFixture(t))
	require.NoError(t, err)
	f := table.Frame()
	require.NoError(t, f.Err())
	assert.Equal(t, Columns(), f.Columns())
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, "2020-01-06", f.Value(0, "Date"))
	assert.Equal(t, int64(25), f.Value(2, "Age"))
	assert.Equal(t, int64(1), f.Value(0, "Fentanyl"))
	assert.Nil(t, f.Value(1, "Latitude"))
	assert.True(t, f.IsNumeric("Heroin"))
}

func TestWriteCSV(t *testing.T) {
	table, err := Load(standardFixture(t))
	require.NoError(t, err)
	var b strings.Builder
	require.NoError(t, table.WriteCSV(&b))

	rows, err := csv.NewReader(strings.NewReader(b.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns(), rows[0])
	assert.Equal(t, "25", rows[3][2])
	assert.Equal(t, "", rows[2][len(rows[2])-1])
}

func TestSummary(t *testing.T) {
	table, err := Load(standardFixture(t))
	require.NoError(t, err)
	s := table.Summary()
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 1, s.Geolocated)
	assert.Equal(t, 1, s.ImputedAges)
	assert.Equal(t, 20, s.AgeMin)
	assert.Equal(t, 30, s.AgeMax)
	assert.InDelta(t, 25.0, s.AgeMean, 1e-9)
	assert.InDelta(t, 5.0, s.AgeStdDev, 1e-9)
	assert.Equal(t, 2, s.Nulls["Latitude"])
	assert.Zero(t, s.Nulls["Sex"])
}

func TestCacheSharesLoadsByContent(t *testing.T) {
	path := standardFixture(t)
	c := NewCache(nil)

	var wg sync.WaitGroup
	tables := make([]*Table, 8)
	for i := range tables {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tb, err := c.Load(path)
			assert.NoError(t, err)
			tables[i] = tb
		}(i)
	}
	wg.Wait()
	for _, tb := range tables[1:] {
		assert.Same(t, tables[0], tb)
	}
	assert.Equal(t, 1, c.Len())

	// same bytes at another path hit the cache
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copyPath := filepath.Join(t.TempDir(), "copy.csv")
	require.NoError(t, os.WriteFile(copyPath, data, 0o644))
	again, err := c.Load(copyPath)
	require.NoError(t, err)
	assert.Same(t, tables[0], again)
	assert.Equal(t, 2, c.Len())
}

func TestCacheKeepsNewestContentPerPath(t *testing.T) {
	path := standardFixture(t)
	c := NewCache(nil)

	first, err := c.Load(path)
	require.NoError(t, err)

	// rewrite the same path with different content
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(fixtureHeader))
	require.NoError(t, w.Write(fixtureRow("9", "02/02/2016", "33", "Male", "White", "X", "")))
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, f.Close())

	second, err := c.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, 1, second.Len())
	assert.Equal(t, 3, first.Len(), "earlier table stays usable")
	assert.Equal(t, 1, c.Len())

	again, err := c.Load(path)
	require.NoError(t, err)
	assert.Same(t, second, again)
	assert.Equal(t, 1, c.Len())
}

func TestCSVReaderOwnsFile(t *testing.T) {
	r, err := NewCSVReader(standardFixture(t))
	require.NoError(t, err)
	assert.Empty(t, r.Missing())
	raw, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "12-0001", raw.id)
	require.NoError(t, r.Close())
	assert.Error(t, r.Close(), "file already closed")

	empty := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = NewCSVReader(empty)
	assert.ErrorContains(t, err, "empty file")

	_, err = Load(empty)
	var le *DataLoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, empty, le.Path)
}
