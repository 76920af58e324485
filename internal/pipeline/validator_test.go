package pipeline_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/couchcryptid/station-data-etl-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(store domain.ObjectStore, clock clockwork.Clock, metrics *observability.Metrics) *pipeline.Validator {
	router := pipeline.NewRouter(store, clock, domain.Layout{}, slog.Default(), metrics)
	return pipeline.NewValidator(store, clock, router, slog.Default(), metrics)
}

func TestValidator_ValidateKey(t *testing.T) {
	const key = "1929/03005099999.csv"
	tests := []struct {
		name    string
		content []byte
		want    domain.Verdict
	}{
		{"valid", stationCSV("03005099999", "50", "60"), domain.Valid},
		{"non unique latitude", csvOf(gsodHeader,
			`"03005099999","1929-01-01","51.25","-2.333","134.0","50","40","1000","45","55","0","000000"`,
			`"03005099999","1929-01-02","51.26","-2.333","134.0","60","40","1000","45","55","0","000000"`,
		), domain.NonUniqueSpatial},
		{"missing elevation column", csvOf(
			`"STATION","DATE","LATITUDE","LONGITUDE","TEMP","DEWP","STP","MIN","MAX","PRCP","FRSHTT"`,
			`"03005099999","1929-01-01","51.25","-2.333","50","40","1000","45","55","0","000000"`,
		), domain.MissingSpatial},
		{"blank first latitude", csvOf(gsodHeader,
			`"03005099999","1929-01-01","","-2.333","134.0","50","40","1000","45","55","0","000000"`,
		), domain.MissingSpatial},
		{"empty object", nil, domain.EmptyData},
		{"header only", csvOf(gsodHeader), domain.EmptyData},
		{"missing measurement column", csvOf(
			`"STATION","DATE","LATITUDE","LONGITUDE","ELEVATION","DEWP","STP","MIN","MAX","PRCP","FRSHTT"`,
			`"03005099999","1929-01-01","51.25","-2.333","134.0","40","1000","45","55","0","000000"`,
		), domain.ParseError},
		{"ragged row", csvOf(gsodHeader, `"03005099999","1929-01-01","51.25"`), domain.ParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clock := newStore(t)
			put(t, store, key, tt.content)
			metrics := observability.NewMetricsForTesting()
			v := newValidator(store, clock, metrics)
			clock.Advance(time.Hour)

			res := v.ValidateKey(context.Background(), key)
			require.NoError(t, res.Err)
			assert.Equal(t, tt.want, res.Verdict)
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.FilesValidated.WithLabelValues(tt.want.String())), 0)

			if tt.want == domain.Valid {
				assert.Nil(t, res.Quarantined)
				md, ok := store.Metadata(key)
				require.True(t, ok)
				assert.Equal(t, "Fri, 01 Mar 2024 13:00:00 UTC", md[domain.MetadataLastModified])
				return
			}

			require.NotNil(t, res.Quarantined)
			assert.Equal(t, tt.want.String(), res.Quarantined.Reason)
			assert.False(t, store.Has(key))
			assert.True(t, store.Has(domain.QuarantineKey("1929", "03005099999", tt.want)))
		})
	}
}

func TestValidator_RevalidationIsStable(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/1.csv", stationCSV("1", "50"))
	v := newValidator(store, clock, observability.NewMetricsForTesting())

	first := v.ValidateKey(context.Background(), "1929/1.csv")
	clock.Advance(time.Minute)
	second := v.ValidateKey(context.Background(), "1929/1.csv")

	assert.Equal(t, domain.Valid, first.Verdict)
	assert.Equal(t, domain.Valid, second.Verdict)
	assert.Equal(t, []string{"1929/1.csv"}, store.Keys())
}

func TestValidator_SkipsStructuralKeys(t *testing.T) {
	store, clock := newStore(t)
	v := newValidator(store, clock, observability.NewMetricsForTesting())

	for _, key := range []string{"1929/", "_data_error/1929-1-empty_data.csv", "year_average/avg_1929.csv"} {
		res := v.ValidateKey(context.Background(), key)
		assert.True(t, res.Skipped, key)
	}
	assert.Equal(t, 0, store.Calls("get"))
}

func TestValidator_NotFound(t *testing.T) {
	store, clock := newStore(t)
	v := newValidator(store, clock, observability.NewMetricsForTesting())

	res := v.ValidateKey(context.Background(), "1929/vanished.csv")
	require.NoError(t, res.Err)
	assert.Equal(t, domain.NotFound, res.Verdict)
	assert.Nil(t, res.Quarantined, "nothing left to move")
}

func TestValidator_ValidateBatchContinuesPastFailures(t *testing.T) {
	mem, clock := newStore(t)
	put(t, mem, "1929/1.csv", stationCSV("1", "50"))
	put(t, mem, "1929/2.csv", stationCSV("2", "50"))
	put(t, mem, "1929/3.csv", nil)
	store := &getFailer{
		Store: mem,
		keys:  map[string]bool{"1929/2.csv": true},
		err:   fmt.Errorf("throttled: %w", domain.ErrTransient),
	}
	metrics := observability.NewMetricsForTesting()
	v := newValidator(store, clock, metrics)

	res, err := v.ValidateBatch(context.Background(), []string{"1929/", "1929/1.csv", "1929/2.csv", "1929/3.csv"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Touched)
	assert.Equal(t, 1, res.Verdicts[domain.Valid])
	assert.Equal(t, 1, res.Verdicts[domain.EmptyData])
	require.Len(t, res.Quarantined, 1)
	assert.Equal(t, "1929/3.csv", res.Quarantined[0].OriginalKey)
	assert.True(t, mem.Has("1929/2.csv"), "failed file left in place")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FilesFailed), 0)
}

func TestValidator_ValidateBatchCancelled(t *testing.T) {
	store, clock := newStore(t)
	put(t, store, "1929/1.csv", stationCSV("1", "50"))
	v := newValidator(store, clock, observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := v.ValidateBatch(ctx, []string{"1929/1.csv"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Calls("get"))
}
