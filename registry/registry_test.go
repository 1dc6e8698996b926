package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnsStableAcrossCalls(t *testing.T) {
	a := Columns()
	b := Columns()
	require.NotEmpty(t, a)
	assert.Equal(t, a, b)
	assert.Len(t, a, Len())
	assert.Equal(t, "Heroin", a[0])
	assert.Equal(t, "Other", a[len(a)-1])
}

func TestColumnsReturnsCopy(t *testing.T) {
	a := Columns()
	a[0] = "Aspirin"
	assert.Equal(t, "Heroin", Columns()[0])
	assert.False(t, Contains("Aspirin"))
}

func TestIndexAndName(t *testing.T) {
	for i, c := range Columns() {
		got, ok := Index(c)
		require.True(t, ok, c)
		assert.Equal(t, i, got)
		assert.Equal(t, c, Name(i))
	}
	_, ok := Index("Caffeine")
	assert.False(t, ok)
}

func TestNoDuplicateColumns(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range Columns() {
		assert.False(t, seen[c], "duplicate %q", c)
		seen[c] = true
	}
}
