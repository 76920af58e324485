package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// FileResult is the outcome of validating one key.
type FileResult struct {
	Key     string
	Verdict domain.Verdict

	// Skipped is set for structural keys, which are never inspected.
	Skipped bool

	// Err is set when the file could not be processed, typically after
	// retries were exhausted.
	Err error

	// Quarantined is set when the file was moved into quarantine.
	Quarantined *domain.QuarantineEntry
}

// BatchResult aggregates the outcomes of one batch.
type BatchResult struct {
	Verdicts    map[domain.Verdict]int
	Touched     int
	Skipped     int
	Failed      int
	Quarantined []domain.QuarantineEntry
}

// Validator inspects station-year files and acts on the verdict: valid files
// get their metadata touched, everything else goes to the Router.
type Validator struct {
	store   domain.ObjectStore
	clock   clockwork.Clock
	router  *Router
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewValidator creates a Validator.
func NewValidator(store domain.ObjectStore, clock clockwork.Clock, router *Router, logger *slog.Logger, metrics *observability.Metrics) *Validator {
	return &Validator{store: store, clock: clock, router: router, logger: logger, metrics: metrics}
}

// ValidateKey validates a single file.
func (v *Validator) ValidateKey(ctx context.Context, key string) FileResult {
	res := FileResult{Key: key}
	if !v.router.layout.IsDataKey(key) {
		res.Skipped = true
		return res
	}

	data, err := v.store.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		res.Verdict = domain.NotFound
	case err != nil:
		return v.fail(res, fmt.Errorf("read: %w", err))
	default:
		insp := domain.Inspect(data)
		res.Verdict = insp.Verdict
		if insp.Verdict != domain.Valid {
			v.logger.Debug("file rejected", "key", key, "verdict", insp.Verdict.String(), "column", insp.Column, "error", insp.Err)
		}
	}

	if res.Verdict == domain.Valid {
		err := v.store.Copy(ctx, key, key, domain.TouchMetadata(v.clock.Now()), true)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			res.Verdict = domain.NotFound
		case err != nil:
			return v.fail(res, fmt.Errorf("touch: %w", err))
		default:
			v.metrics.FilesValidated.WithLabelValues(res.Verdict.String()).Inc()
			return res
		}
	}

	v.metrics.FilesValidated.WithLabelValues(res.Verdict.String()).Inc()
	entry, moved, err := v.router.Quarantine(ctx, key, res.Verdict)
	if err != nil {
		return v.fail(res, err)
	}
	if moved {
		res.Quarantined = &entry
	}
	return res
}

func (v *Validator) fail(res FileResult, err error) FileResult {
	res.Err = err
	v.metrics.FilesFailed.Inc()
	v.logger.Error("file validation failed", "key", res.Key, "error", err)
	return res
}

// ValidateBatch validates keys in order. Per-file failures are counted and
// the batch continues; only cancellation stops it early.
func (v *Validator) ValidateBatch(ctx context.Context, keys []string) (BatchResult, error) {
	out := BatchResult{Verdicts: make(map[domain.Verdict]int)}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		res := v.ValidateKey(ctx, key)
		switch {
		case res.Skipped:
			out.Skipped++
		case res.Err != nil:
			out.Failed++
		default:
			out.Verdicts[res.Verdict]++
			if res.Verdict == domain.Valid {
				out.Touched++
			}
		}
		if res.Quarantined != nil {
			out.Quarantined = append(out.Quarantined, *res.Quarantined)
		}
	}
	return out, nil
}
