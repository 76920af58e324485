package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Summary object metadata keys.
const (
	MetadataGeneratedAt = "generated_at"
	MetadataSites       = "sites"
)

// AggregateResult describes one year's aggregation.
type AggregateResult struct {
	Year string
	Key  string

	// Skipped is set when an existing summary was left in place.
	Skipped bool

	Sites       int
	FailedFiles int
	GeneratedAt time.Time
}

// Aggregator reduces a year's valid files into one summary object.
type Aggregator struct {
	store   domain.ObjectStore
	clock   clockwork.Clock
	layout  domain.Layout
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAggregator creates an Aggregator.
func NewAggregator(store domain.ObjectStore, clock clockwork.Clock, layout domain.Layout, logger *slog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{store: store, clock: clock, layout: layout, logger: logger, metrics: metrics}
}

// Aggregate writes the summary for the year named by partition. Unless forceAll is set, a year that
// already has a summary is skipped without reading any file. Files that
// cannot be read or parsed are logged and left out.
func (a *Aggregator) Aggregate(ctx context.Context, partition string, forceAll bool) (AggregateResult, error) {
	start := a.clock.Now()
	year := a.layout.Year(partition)
	key := a.layout.SummaryKey(year)
	res := AggregateResult{Year: year, Key: key}

	if !forceAll {
		exists, err := a.exists(ctx, key)
		if err != nil {
			a.metrics.YearsAggregated.WithLabelValues("failed").Inc()
			return res, fmt.Errorf("check summary %s: %w", key, err)
		}
		if exists {
			res.Skipped = true
			a.metrics.YearsAggregated.WithLabelValues("skipped").Inc()
			a.logger.Debug("summary exists, skipping year", "year", year, "key", key)
			return res, nil
		}
	}

	objs, err := a.store.List(ctx, partition+partitionDelimiter)
	if err != nil {
		a.metrics.YearsAggregated.WithLabelValues("failed").Inc()
		return res, fmt.Errorf("list year %s: %w", year, err)
	}

	summary := domain.YearlySummary{Year: year}
	for _, o := range objs {
		if !a.layout.IsDataKey(o.Key) {
			continue
		}
		site, err := a.summarizeFile(ctx, o.Key)
		if err != nil {
			res.FailedFiles++
			a.metrics.AggregateFileErrors.Inc()
			a.logger.Warn("skipping file in aggregation", "year", year, "key", o.Key, "error", err)
			continue
		}
		summary.Sites = append(summary.Sites, site)
	}

	data, err := summary.Encode()
	if err != nil {
		a.metrics.YearsAggregated.WithLabelValues("failed").Inc()
		return res, fmt.Errorf("encode summary %s: %w", year, err)
	}

	res.GeneratedAt = a.clock.Now().UTC()
	res.Sites = len(summary.Sites)
	metadata := map[string]string{
		MetadataGeneratedAt: res.GeneratedAt.Format(time.RFC3339),
		MetadataSites:       strconv.Itoa(res.Sites),
	}
	if err := a.store.Put(ctx, key, data, metadata); err != nil {
		a.metrics.YearsAggregated.WithLabelValues("failed").Inc()
		return res, fmt.Errorf("write summary %s: %w", key, err)
	}

	a.metrics.YearsAggregated.WithLabelValues("written").Inc()
	a.metrics.AggregatedSites.Add(float64(res.Sites))
	a.metrics.AggregateDuration.Observe(a.clock.Since(start).Seconds())
	a.logger.Info("summary written", "year", year, "key", key, "sites", res.Sites, "skipped_files", res.FailedFiles)
	return res, nil
}

// exists checks for key with a listing so no object body is read.
func (a *Aggregator) exists(ctx context.Context, key string) (bool, error) {
	objs, err := a.store.List(ctx, key)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(objs, func(o domain.ObjectInfo) bool { return o.Key == key }), nil
}

func (a *Aggregator) summarizeFile(ctx context.Context, key string) (domain.SiteAverages, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return domain.SiteAverages{}, err
	}
	file, err := domain.ParseStationYear(data)
	if err != nil {
		return domain.SiteAverages{}, err
	}
	return domain.Summarize(file)
}
