package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/couchcryptid/station-data-etl-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const summaryHeaderLine = "SITE_NUMBER,LATITUDE,LONGITUDE,ELEVATION,AVERAGE_TEMP,DEWP,STP,MIN,MAX,PRCP"

func summaryLines(t *testing.T, store interface {
	Get(context.Context, string) ([]byte, error)
}, year string) []string {
	t.Helper()
	data, err := store.Get(context.Background(), domain.SummaryKey(year))
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestAggregator_Means(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/03005099999.csv", stationCSV("03005099999", "50", "60"))
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	res, err := a.Aggregate(context.Background(), "1929", false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Sites)
	assert.Equal(t, "year_average/avg_1929.csv", res.Key)

	lines := summaryLines(t, store, "1929")
	require.Len(t, lines, 2)
	assert.Equal(t, summaryHeaderLine, lines[0])
	assert.Equal(t, "03005099999,51.25,-2.333,134.0,55.0,40.0,1000.0,45.0,55.0,0.0", lines[1])

	md, ok := store.Metadata(domain.SummaryKey("1929"))
	require.True(t, ok)
	assert.Equal(t, "1", md[pipeline.MetadataSites])
	assert.Equal(t, "2024-03-01T12:00:00Z", md[pipeline.MetadataGeneratedAt])
}

func TestAggregator_OneLinePerFile(t *testing.T) {
	store, clock := newStore(t)
	const n = 5
	for i := range n {
		id := fmt.Sprintf("0300%d099999", i)
		put(t, store, "1929/"+id+".csv", stationCSV(id, "50"))
	}
	put(t, store, "1929/", nil)
	put(t, store, "1930/03005099999.csv", stationCSV("03005099999", "70"))
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	_, err := a.Aggregate(context.Background(), "1929", false)
	require.NoError(t, err)

	lines := summaryLines(t, store, "1929")
	require.Len(t, lines, n+1)
	for i := range n {
		assert.True(t, strings.HasPrefix(lines[i+1], fmt.Sprintf("0300%d099999,", i)), "file-processing order")
	}
}

func TestAggregator_SkipIfExists(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/03005099999.csv", stationCSV("03005099999", "50"))
	put(t, store, domain.SummaryKey("1929"), []byte("existing"))
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())
	getsBefore, putsBefore := store.Calls("get"), store.Calls("put")

	res, err := a.Aggregate(context.Background(), "1929", false)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, getsBefore, store.Calls("get"), "no reads issued")
	assert.Equal(t, putsBefore, store.Calls("put"))

	data, err := store.Get(context.Background(), domain.SummaryKey("1929"))
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), data)
}

func TestAggregator_ForceAllOverwrites(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/03005099999.csv", stationCSV("03005099999", "50"))
	put(t, store, domain.SummaryKey("1929"), []byte("existing"))
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	res, err := a.Aggregate(context.Background(), "1929", true)
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	lines := summaryLines(t, store, "1929")
	assert.Len(t, lines, 2)
}

func TestAggregator_SkipsUnreadableFiles(t *testing.T) {
	mem, clock := newStore(t)
	put(t, mem, "1929/1.csv", stationCSV("1", "50"))
	put(t, mem, "1929/2.csv", []byte("not,a\nstation\"file"))
	put(t, mem, "1929/3.csv", stationCSV("3", "60"))
	put(t, mem, "1929/4.csv", stationCSV("4", "70"))
	store := &getFailer{Store: mem, keys: map[string]bool{"1929/4.csv": true}, err: errors.New("boom")}
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	res, err := a.Aggregate(context.Background(), "1929", false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sites)
	assert.Equal(t, 2, res.FailedFiles)
	assert.True(t, mem.Has("1929/2.csv"), "aggregation never quarantines")

	lines := summaryLines(t, mem, "1929")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
	assert.True(t, strings.HasPrefix(lines[2], "3,"))
}

func TestAggregator_EmptyYearWritesHeader(t *testing.T) {
	store, clock := newStore(t)
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	res, err := a.Aggregate(context.Background(), "1931", false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Sites)
	assert.Equal(t, []string{summaryHeaderLine}, summaryLines(t, store, "1931"))
}

func TestAggregator_ListFailure(t *testing.T) {
	store, clock := newStore(t)
	store.FailOn("list", fmt.Errorf("list: %w", domain.ErrTransient))
	a := pipeline.NewAggregator(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	_, err := a.Aggregate(context.Background(), "1929", false)
	require.ErrorIs(t, err, domain.ErrTransient)
}

func TestAggregator_UnderRoot(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "noaa/1929/03005099999.csv", stationCSV("03005099999", "50", "60"))
	a := pipeline.NewAggregator(store, clock, domain.NewLayout("noaa/"), slog.Default(), observability.NewMetricsForTesting())

	res, err := a.Aggregate(context.Background(), "noaa/1929", false)
	require.NoError(t, err)
	assert.Equal(t, "1929", res.Year)
	assert.Equal(t, "noaa/year_average/avg_1929.csv", res.Key)
	assert.Equal(t, 1, res.Sites)
	assert.True(t, store.Has("noaa/year_average/avg_1929.csv"))
	assert.False(t, store.Has(domain.SummaryKey("1929")))
}
