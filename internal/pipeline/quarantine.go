package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Router moves failing files into the quarantine area.
type Router struct {
	store   domain.ObjectStore
	clock   clockwork.Clock
	layout  domain.Layout
	logger  *slog.Logger
	metrics *observability.Metrics

	markerMu sync.Mutex
	marker   bool
}

// NewRouter creates a quarantine router writing to the quarantine folder of
// layout.
func NewRouter(store domain.ObjectStore, clock clockwork.Clock, layout domain.Layout, logger *slog.Logger, metrics *observability.Metrics) *Router {
	return &Router{store: store, clock: clock, layout: layout, logger: logger, metrics: metrics}
}

// ensureMarker writes the quarantine folder marker once per router. A failed
// put is retried on the next call.
func (r *Router) ensureMarker(ctx context.Context) error {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()
	if r.marker {
		return nil
	}
	if err := r.store.Put(ctx, r.layout.QuarantinePrefix(), nil, nil); err != nil {
		return fmt.Errorf("create quarantine marker: %w", err)
	}
	r.marker = true
	return nil
}

// Quarantine copies key to its reason-coded quarantine name and deletes the
// original. It reports whether a file was moved. A source that is already
// gone is not an error. Keys that do not look like "{year}/{station}.csv"
// below the layout root are deleted without a copy.
func (r *Router) Quarantine(ctx context.Context, key string, reason domain.Verdict) (domain.QuarantineEntry, bool, error) {
	if err := r.ensureMarker(ctx); err != nil {
		return domain.QuarantineEntry{}, false, err
	}

	year, stationID, err := r.layout.ParseStationKey(key)
	if err != nil {
		r.logger.Warn("malformed key, deleting without quarantine copy", "key", key, "reason", reason.String(), "error", err)
		if err := r.store.Delete(ctx, key); err != nil {
			return domain.QuarantineEntry{}, false, fmt.Errorf("delete %s: %w", key, err)
		}
		return domain.QuarantineEntry{}, false, nil
	}

	dst := r.layout.QuarantineKey(year, stationID, reason)
	if err := r.store.Copy(ctx, key, dst, nil, false); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Info("file already gone, nothing to quarantine", "key", key, "reason", reason.String())
			return domain.QuarantineEntry{}, false, nil
		}
		return domain.QuarantineEntry{}, false, fmt.Errorf("copy %s to quarantine: %w", key, err)
	}
	if err := r.store.Delete(ctx, key); err != nil {
		return domain.QuarantineEntry{}, false, fmt.Errorf("delete %s after quarantine copy: %w", key, err)
	}

	r.metrics.FilesQuarantined.WithLabelValues(reason.String()).Inc()
	r.logger.Info("file quarantined", "key", key, "destination", dst, "reason", reason.String())

	return domain.QuarantineEntry{
		OriginalKey: key,
		Year:        year,
		StationID:   stationID,
		Reason:      reason.String(),
		Destination: dst,
		CreatedAt:   r.clock.Now().UTC(),
	}, true, nil
}
