// Package retry decorates an object store with bounded exponential backoff
// for transient failures.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/couchcryptid/station-data-etl-service/internal/observability"
)

// Policy bounds the retries of a single store operation.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Store wraps a domain.ObjectStore. Errors wrapping domain.ErrTransient are
// retried up to MaxAttempts in total; every other error is returned at once.
type Store struct {
	inner   domain.ObjectStore
	policy  Policy
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a retrying decorator around inner.
func New(inner domain.ObjectStore, policy Policy, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &Store{inner: inner, policy: policy, logger: logger, metrics: metrics}
}

func (s *Store) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.policy.InitialInterval
	bo.MaxInterval = s.policy.MaxInterval
	// Attempts bound the retry, not wall time.
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(s.policy.MaxAttempts-1)), ctx)
}

func do[T any](ctx context.Context, s *Store, op, key string, fn func() (T, error)) (T, error) {
	operation := func() (T, error) {
		v, err := fn()
		if err != nil && !errors.Is(err, domain.ErrTransient) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	notify := func(err error, wait time.Duration) {
		s.metrics.StoreRetries.WithLabelValues(op).Inc()
		s.logger.Warn("store operation failed, retrying", "op", op, "key", key, "wait", wait, "error", err)
	}

	v, err := backoff.RetryNotifyWithData(operation, s.newBackOff(ctx), notify)
	s.metrics.StoreOperations.WithLabelValues(op, outcome(err)).Inc()
	return v, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func (s *Store) List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error) {
	return do(ctx, s, "list", prefix, func() ([]domain.ObjectInfo, error) {
		return s.inner.List(ctx, prefix)
	})
}

func (s *Store) ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error) {
	return do(ctx, s, "list_prefixes", prefix, func() ([]string, error) {
		return s.inner.ListPrefixes(ctx, prefix, delimiter)
	})
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return do(ctx, s, "get", key, func() ([]byte, error) {
		return s.inner.Get(ctx, key)
	})
}

func (s *Store) Put(ctx context.Context, key string, data []byte, metadata map[string]string) error {
	_, err := do(ctx, s, "put", key, func() (struct{}, error) {
		return struct{}{}, s.inner.Put(ctx, key, data, metadata)
	})
	return err
}

func (s *Store) Copy(ctx context.Context, src, dst string, metadata map[string]string, replaceMetadata bool) error {
	_, err := do(ctx, s, "copy", src, func() (struct{}, error) {
		return struct{}{}, s.inner.Copy(ctx, src, dst, metadata, replaceMetadata)
	})
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := do(ctx, s, "delete", key, func() (struct{}, error) {
		return struct{}{}, s.inner.Delete(ctx, key)
	})
	return err
}
