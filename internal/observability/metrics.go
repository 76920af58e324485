package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "station_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	FilesDiscovered  prometheus.Counter
	FilesValidated   *prometheus.CounterVec // labels: verdict
	FilesQuarantined *prometheus.CounterVec // labels: reason
	FilesFailed      prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Aggregation metrics.
	YearsAggregated     *prometheus.CounterVec // labels: outcome={written,skipped,failed}
	AggregatedSites     prometheus.Counter
	AggregateFileErrors prometheus.Counter
	AggregateDuration   prometheus.Histogram

	// Object store metrics.
	StoreOperations *prometheus.CounterVec // labels: op, outcome={success,not_found,error}
	StoreRetries    *prometheus.CounterVec // labels: op
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.FilesDiscovered,
		m.FilesValidated,
		m.FilesQuarantined,
		m.FilesFailed,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.YearsAggregated,
		m.AggregatedSites,
		m.AggregateFileErrors,
		m.AggregateDuration,
		m.StoreOperations,
		m.StoreRetries,
	)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		FilesDiscovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_discovered_total",
			Help:      help("Station-year files selected for validation."),
		}),
		FilesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_validated_total",
			Help:      help("Validated station-year files by verdict."),
		}, []string{"verdict"}),
		FilesQuarantined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_quarantined_total",
			Help:      help("Files moved into the quarantine area by reason."),
		}, []string{"reason"}),
		FilesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_failed_total",
			Help:      help("Files whose validation could not complete after retries."),
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      help("1 while a run is active, 0 otherwise."),
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      help("Number of keys per dispatched batch."),
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      help("Duration of validating one batch."),
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		YearsAggregated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "years_aggregated_total",
			Help:      help("Yearly aggregations by outcome."),
		}, []string{"outcome"}),
		AggregatedSites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregated_sites_total",
			Help:      help("Station rows written into yearly summaries."),
		}),
		AggregateFileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_file_errors_total",
			Help:      help("Files skipped during aggregation because they could not be read or parsed."),
		}),
		AggregateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_duration_seconds",
			Help:      help("Duration of aggregating one year."),
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      help("Object store operations by operation and outcome."),
		}, []string{"op", "outcome"}),
		StoreRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_retries_total",
			Help:      help("Retried object store operations after a transient error."),
		}, []string{"op"}),
	}
}
