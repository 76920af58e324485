package pipeline

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

const partitionDelimiter = "/"

// Discovery lists partitions and the file keys inside them.
type Discovery struct {
	store domain.ObjectStore
	clock clockwork.Clock
}

// NewDiscovery creates a Discovery reading from store. Recency cutoffs are
// computed from clock.
func NewDiscovery(store domain.ObjectStore, clock clockwork.Clock) *Discovery {
	return &Discovery{store: store, clock: clock}
}

// Partitions returns the sorted partition names (year prefixes without the
// trailing delimiter) under prefix. The summary and quarantine namespaces are
// not partitions.
func (d *Discovery) Partitions(ctx context.Context, prefix string) ([]string, error) {
	prefixes, err := d.store.ListPrefixes(ctx, prefix, partitionDelimiter)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		name := strings.TrimSuffix(p, partitionDelimiter)
		if name == "" || domain.IsReservedKey(name) {
			continue
		}
		names = append(names, name)
	}
	return sortedUnique(names), nil
}

// Recent returns the keys under prefix whose last-modified time is strictly
// after (newerThan) or strictly before (!newerThan) now minus threshold.
func (d *Discovery) Recent(ctx context.Context, prefix string, threshold time.Duration, newerThan bool) ([]string, error) {
	objs, err := d.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	cutoff := d.clock.Now().Add(-threshold)
	keys := make([]string, 0, len(objs))
	for _, o := range objs {
		if newerThan && o.LastModified.After(cutoff) || !newerThan && o.LastModified.Before(cutoff) {
			keys = append(keys, o.Key)
		}
	}
	return sortedUnique(keys), nil
}

// All returns every key under prefix.
func (d *Discovery) All(ctx context.Context, prefix string) ([]string, error) {
	objs, err := d.store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	return sortedUnique(keys), nil
}

func sortedUnique(s []string) []string {
	slices.Sort(s)
	return slices.Compact(s)
}
