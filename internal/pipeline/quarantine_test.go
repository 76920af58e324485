package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/couchcryptid/station-data-etl-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_Quarantine(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/03005099999.csv", []byte("payload"))
	metrics := observability.NewMetricsForTesting()
	r := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), metrics)

	entry, moved, err := r.Quarantine(context.Background(), "1929/03005099999.csv", domain.NonUniqueSpatial)
	require.NoError(t, err)
	require.True(t, moved)

	dst := "_data_error/1929-03005099999-non_unique_spatial.csv"
	assert.Equal(t, domain.QuarantineEntry{
		OriginalKey: "1929/03005099999.csv",
		Year:        "1929",
		StationID:   "03005099999",
		Reason:      "non_unique_spatial",
		Destination: dst,
		CreatedAt:   epoch,
	}, entry)

	assert.False(t, store.Has("1929/03005099999.csv"))
	assert.True(t, store.Has("_data_error/"))
	data, err := store.Get(context.Background(), dst)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FilesQuarantined.WithLabelValues("non_unique_spatial")), 0)
}

func TestRouter_QuarantineIsIdempotent(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/03005099999.csv", []byte("payload"))
	r := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())
	ctx := context.Background()

	_, moved, err := r.Quarantine(ctx, "1929/03005099999.csv", domain.EmptyData)
	require.NoError(t, err)
	require.True(t, moved)
	before := store.Keys()

	_, moved, err = r.Quarantine(ctx, "1929/03005099999.csv", domain.EmptyData)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, before, store.Keys())
	assert.Equal(t, []string{"_data_error/", "_data_error/1929-03005099999-empty_data.csv"}, before)
}

func TestRouter_MarkerWrittenOnce(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/a.csv", nil)
	put(t, store, "1929/b.csv", nil)
	r := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())
	putsBefore := store.Calls("put")

	for _, k := range []string{"1929/a.csv", "1929/b.csv"} {
		_, _, err := r.Quarantine(context.Background(), k, domain.ParseError)
		require.NoError(t, err)
	}
	assert.Equal(t, putsBefore+1, store.Calls("put"))
}

func TestRouter_MarkerFailureRetried(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/a.csv", nil)
	r := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())
	ctx := context.Background()

	store.FailOn("put", errors.New("denied"))
	_, moved, err := r.Quarantine(ctx, "1929/a.csv", domain.ParseError)
	require.Error(t, err)
	assert.False(t, moved)
	assert.True(t, store.Has("1929/a.csv"))

	store.FailOn("put", nil)
	_, moved, err = r.Quarantine(ctx, "1929/a.csv", domain.ParseError)
	require.NoError(t, err)
	assert.True(t, moved)
}

func TestRouter_MalformedKeyDeletedWithoutCopy(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/nested/a.csv", []byte("x"))
	r := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	_, moved, err := r.Quarantine(context.Background(), "1929/nested/a.csv", domain.MissingSpatial)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 0, store.Calls("copy"))
	assert.Equal(t, []string{"_data_error/"}, store.Keys())
}

func TestRouter_ExtensionStrippedAtFirstDot(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/03005099999.csv.gz", nil)
	r := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), observability.NewMetricsForTesting())

	entry, moved, err := r.Quarantine(context.Background(), "1929/03005099999.csv.gz", domain.ParseError)
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, "_data_error/1929-03005099999-parse_error.csv", entry.Destination)
}

func TestRouter_QuarantineUnderRoot(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "noaa/1929/03100099999.csv", []byte("payload"))
	r := pipeline.NewRouter(store, clock, domain.NewLayout("noaa/"), slog.Default(), observability.NewMetricsForTesting())

	entry, moved, err := r.Quarantine(context.Background(), "noaa/1929/03100099999.csv", domain.EmptyData)
	require.NoError(t, err)
	require.True(t, moved)
	assert.Equal(t, "1929", entry.Year)
	assert.Equal(t, "03100099999", entry.StationID)
	assert.Equal(t, "noaa/_data_error/1929-03100099999-empty_data.csv", entry.Destination)
	assert.Equal(t, []string{
		"noaa/_data_error/",
		"noaa/_data_error/1929-03100099999-empty_data.csv",
	}, store.Keys())
}
