package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStationKey(t *testing.T) {
	year, station, err := ParseStationKey("1929/03005099999.csv")
	require.NoError(t, err)
	assert.Equal(t, "1929", year)
	assert.Equal(t, "03005099999", station)

	year, station, err = ParseStationKey("2001/72503014732.csv.gz")
	require.NoError(t, err)
	assert.Equal(t, "2001", year)
	assert.Equal(t, "72503014732", station)

	for _, key := range []string{"03005099999.csv", "a/b/c.csv", "1929/", "/x.csv", "1929/.csv"} {
		_, _, err := ParseStationKey(key)
		assert.Error(t, err, key)
	}
}

func TestIsDataKey(t *testing.T) {
	assert.True(t, IsDataKey("1929/03005099999.csv"))

	assert.False(t, IsDataKey("1929/"))
	assert.False(t, IsDataKey("1929/x"))
	assert.False(t, IsDataKey("year_average/avg_1929.csv"))
	assert.False(t, IsDataKey("_data_error/1929-03005099999-empty_data.csv"))
	assert.False(t, IsDataKey("1929/year_average_backup.csv"))
}

func TestSummaryAndQuarantineKeys(t *testing.T) {
	assert.Equal(t, "year_average/avg_1929.csv", SummaryKey("1929"))
	assert.Equal(t, "_data_error/1929-03005099999-non_unique_spatial.csv",
		QuarantineKey("1929", "03005099999", NonUniqueSpatial))
	assert.Equal(t, "_data_error/1930-1-not_found.csv", QuarantineKey("1930", "1", NotFound))
}

func TestNewLayout(t *testing.T) {
	assert.Equal(t, "", NewLayout("").Root)
	assert.Equal(t, "", NewLayout("19").Root)
	assert.Equal(t, "noaa/", NewLayout("noaa/").Root)
	assert.Equal(t, "noaa/", NewLayout("noaa/19").Root)
	assert.Equal(t, "data/gsod/", NewLayout("data/gsod/").Root)
}

func TestLayout_Keys(t *testing.T) {
	l := NewLayout("noaa/")

	assert.Equal(t, "1929", l.Year("noaa/1929"))
	assert.Equal(t, "noaa/year_average/avg_1929.csv", l.SummaryKey("1929"))
	assert.Equal(t, "noaa/_data_error/", l.QuarantinePrefix())
	assert.Equal(t, "noaa/_data_error/1929-03100099999-empty_data.csv",
		l.QuarantineKey("1929", "03100099999", EmptyData))

	year, station, err := l.ParseStationKey("noaa/1929/03100099999.csv")
	require.NoError(t, err)
	assert.Equal(t, "1929", year)
	assert.Equal(t, "03100099999", station)

	_, _, err = l.ParseStationKey("other/1929/03100099999.csv")
	require.Error(t, err)

	assert.True(t, l.IsDataKey("noaa/1929/03100099999.csv"))
	assert.False(t, l.IsDataKey("noaa/1929/"))
	assert.False(t, l.IsDataKey("noaa/_data_error/1929-03100099999-empty_data.csv"))
	assert.False(t, l.IsDataKey("1929/03100099999.csv"))
}

func TestLayout_RootAtBucketTop(t *testing.T) {
	l := NewLayout("19")
	assert.Equal(t, "1929", l.Year("1929"))
	assert.Equal(t, SummaryKey("1929"), l.SummaryKey("1929"))
	assert.True(t, l.IsDataKey("1929/03005099999.csv"))
}
