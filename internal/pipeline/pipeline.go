package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/station-data-etl-service/internal/config"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// EventPublisher writes events to the downstream topic.
type EventPublisher interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Options are the per-run parameters.
type Options struct {
	PartitionPrefix string
	BatchSize       int
	MaxFiles        int
	Staleness       time.Duration
	NewerThan       bool
	ForceAllYears   bool
	Workers         int
}

// OptionsFromConfig extracts run options from the service configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PartitionPrefix: cfg.PartitionPrefix,
		BatchSize:       cfg.BatchSize,
		MaxFiles:        cfg.MaxFiles,
		Staleness:       cfg.Staleness(),
		NewerThan:       cfg.NewerThan,
		ForceAllYears:   cfg.ForceAllYears,
		Workers:         cfg.Workers,
	}
}

// Pipeline runs discovery, batched validation and yearly aggregation over one
// object store.
type Pipeline struct {
	opts       Options
	clock      clockwork.Clock
	discovery  *Discovery
	validator  *Validator
	aggregator *Aggregator
	publisher  EventPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool
}

// New wires a Pipeline. publisher may be nil to disable event publishing.
func New(store domain.ObjectStore, clock clockwork.Clock, opts Options, publisher EventPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	layout := domain.NewLayout(opts.PartitionPrefix)
	router := NewRouter(store, clock, layout, logger, metrics)
	return &Pipeline{
		opts:       opts,
		clock:      clock,
		discovery:  NewDiscovery(store, clock),
		validator:  NewValidator(store, clock, router, logger, metrics),
		aggregator: NewAggregator(store, clock, layout, logger, metrics),
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the current run has listed its partitions,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not listed partitions yet")
	}
	return nil
}

// Run validates recent files in every partition and then aggregates each
// partition's year. Per-file problems are absorbed into the report. The
// returned error joins partition listing and year failures; listing the
// partitions themselves failing aborts the run.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	state := newRunState(runID)

	logger.Info("pipeline started",
		"prefix", p.opts.PartitionPrefix,
		"batch_size", p.opts.BatchSize,
		"max_files", p.opts.MaxFiles,
		"workers", p.opts.Workers,
		"force_all_years", p.opts.ForceAllYears,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	partitions, err := p.discovery.Partitions(ctx, p.opts.PartitionPrefix)
	if err != nil {
		return state.snapshot(), fmt.Errorf("list partitions: %w", err)
	}
	p.ready.Store(true)

	var listErrs []error
	keyLists := make([][]string, 0, len(partitions))
	for _, part := range partitions {
		keys, err := p.discovery.Recent(ctx, part+partitionDelimiter, p.opts.Staleness, p.opts.NewerThan)
		if err != nil {
			logger.Error("list partition failed, skipping validation", "partition", part, "error", err)
			listErrs = append(listErrs, fmt.Errorf("list partition %s: %w", part, err))
			continue
		}
		keyLists = append(keyLists, keys)
	}

	batches, err := Batch(keyLists, p.opts.BatchSize, p.opts.MaxFiles)
	if err != nil {
		return state.snapshot(), err
	}

	discovered := 0
	for _, b := range batches {
		discovered += len(b)
	}
	state.report.Partitions = len(partitions)
	state.report.Discovered = discovered
	state.report.Batches = len(batches)
	p.metrics.FilesDiscovered.Add(float64(discovered))
	logger.Info("files discovered", "partitions", len(partitions), "files", discovered, "batches", len(batches))

	if err := p.validateAll(ctx, runID, batches, state); err != nil {
		return state.snapshot(), err
	}
	if err := p.aggregateAll(ctx, runID, partitions, state); err != nil {
		return state.snapshot(), err
	}

	report := state.snapshot()
	p.logger.Info("pipeline finished", report.LogAttrs()...)
	return report, errors.Join(append(listErrs, state.yearErrors()...)...)
}

// validateAll dispatches batches with bounded concurrency and returns once
// every batch has finished.
func (p *Pipeline) validateAll(ctx context.Context, runID string, batches [][]string, state *runState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, batch := range batches {
		g.Go(func() error {
			start := p.clock.Now()
			res, err := p.validator.ValidateBatch(gctx, batch)
			state.addBatch(res)
			if err != nil {
				return err
			}

			p.metrics.BatchSize.Observe(float64(len(batch)))
			p.metrics.BatchProcessingDuration.Observe(p.clock.Since(start).Seconds())
			p.logger.Debug("batch validated",
				"run_id", runID,
				"batch", i,
				"size", len(batch),
				"valid", res.Touched,
				"quarantined", len(res.Quarantined),
				"failed", res.Failed,
			)
			p.publishQuarantined(gctx, runID, res.Quarantined)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) aggregateAll(ctx context.Context, runID string, partitions []string, state *runState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, part := range partitions {
		g.Go(func() error {
			res, err := p.aggregator.Aggregate(gctx, part, p.opts.ForceAllYears)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			state.addYear(res, err)
			if err != nil {
				p.logger.Error("aggregate year failed", "run_id", runID, "year", res.Year, "error", err)
				return nil
			}
			if !res.Skipped {
				p.publishSummary(gctx, runID, res)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) publishQuarantined(ctx context.Context, runID string, entries []domain.QuarantineEntry) {
	if p.publisher == nil || len(entries) == 0 {
		return
	}
	events := make([]domain.OutputEvent, 0, len(entries))
	for _, e := range entries {
		ev, err := domain.SerializeQuarantineEntry(runID, e)
		if err != nil {
			p.logger.Warn("serialize quarantine event failed", "key", e.OriginalKey, "error", err)
			continue
		}
		events = append(events, ev)
	}
	p.publish(ctx, events)
}

func (p *Pipeline) publishSummary(ctx context.Context, runID string, res AggregateResult) {
	if p.publisher == nil {
		return
	}
	ev, err := domain.SerializeSummaryWritten(runID, domain.SummaryWritten{
		Year:         res.Year,
		Key:          res.Key,
		Sites:        res.Sites,
		SkippedFiles: res.FailedFiles,
		GeneratedAt:  res.GeneratedAt,
	})
	if err != nil {
		p.logger.Warn("serialize summary event failed", "year", res.Year, "error", err)
		return
	}
	p.publish(ctx, []domain.OutputEvent{ev})
}

func (p *Pipeline) publish(ctx context.Context, events []domain.OutputEvent) {
	if len(events) == 0 {
		return
	}
	if err := p.publisher.LoadBatch(ctx, events); err != nil {
		p.logger.Warn("publish events failed", "count", len(events), "error", err)
	}
}
