package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drugdeaths/loader"
	"drugdeaths/registry"
)

func record(age, year int, drugs ...string) loader.Record {
	r := loader.Record{Age: age, Year: year, Month: 1, Day: 1, Quarter: 1, Flags: make([]uint8, registry.Len())}
	for _, d := range drugs {
		i, ok := registry.Index(d)
		if !ok {
			panic(d)
		}
		r.Flags[i] = 1
	}
	return r
}

func sampleTable() *loader.Table {
	return loader.NewTable([]loader.Record{
		record(20, 2019, "Heroin", "Fentanyl"),
		record(30, 2020, "Fentanyl"),
		record(40, 2021, "Cocaine"),
		record(50, 2022, "Cocaine", "Heroin"),
	})
}

func TestFeatureMatrix(t *testing.T) {
	x, y, err := FeatureMatrix(sampleTable(), []string{"Age", "Fentanyl"}, "Heroin")
	require.NoError(t, err)

	r, c := x.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{20, 1}, []float64{x.At(0, 0), x.At(0, 1)})
	assert.Equal(t, []float64{40, 0}, []float64{x.At(2, 0), x.At(2, 1)})
	assert.Equal(t, []float64{1, 0, 0, 1}, y)
}

func TestFeatureMatrixRejectsBadFields(t *testing.T) {
	tbl := sampleTable()

	_, _, err := FeatureMatrix(tbl, []string{"Sex"}, "Heroin")
	var unknown *UnknownFieldError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Sex", unknown.Field)

	_, _, err = FeatureMatrix(tbl, nil, "Heroin")
	assert.ErrorIs(t, err, ErrNoFields)

	_, _, err = FeatureMatrix(tbl, []string{"Age", "Heroin"}, "Heroin")
	assert.ErrorContains(t, err, "also a feature")
}

func TestCorrelation(t *testing.T) {
	fields := []string{"Age", "Year", "Cocaine", "Xylazine"}
	corr, err := Correlation(sampleTable(), fields)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-9, "age and year rise together")
	assert.InDelta(t, corr.At(0, 2), corr.At(2, 0), 1e-12)
	assert.Greater(t, corr.At(0, 2), 0.0)

	// Xylazine never occurs.
	assert.True(t, math.IsNaN(corr.At(3, 3)))
	assert.True(t, math.IsNaN(corr.At(0, 3)))
}

func TestCorrelationNeedsTwoRecords(t *testing.T) {
	_, err := Correlation(loader.NewTable([]loader.Record{record(20, 2020)}), []string{"Age", "Year"})
	assert.Error(t, err)
}

func TestCorrelationFrame(t *testing.T) {
	fields := []string{"Age", "Cocaine", "Xylazine"}
	corr, err := Correlation(sampleTable(), fields)
	require.NoError(t, err)

	f, err := CorrelationFrame(corr, fields)
	require.NoError(t, err)
	require.Equal(t, 9, f.Len())
	assert.Equal(t, "Age", f.String(0, FieldX))
	assert.Equal(t, "Age", f.String(0, FieldY))
	assert.Equal(t, 1.0, f.Value(0, FieldR))
	assert.Equal(t, "Cocaine", f.String(1, FieldY))
	assert.Nil(t, f.Value(2, FieldR), "NaN becomes nil")
	assert.True(t, f.IsNumeric(FieldR))

	_, err = CorrelationFrame(corr, fields[:2])
	assert.Error(t, err)
}

func TestDefaultCorrelationFields(t *testing.T) {
	fields := DefaultCorrelationFields()
	assert.Equal(t, []string{"Age", "Year"}, fields[:2])
	assert.Len(t, fields, 2+registry.Len()-2)
	assert.NotContains(t, fields, "Other")
	assert.NotContains(t, fields, "Heroin death certificate (DC)")
	assert.Contains(t, fields, "Fentanyl")

	for _, f := range fields {
		assert.Contains(t, NumericFields(), f)
	}
}
