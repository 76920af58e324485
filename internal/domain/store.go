package domain

import (
	"context"
	"time"
)

// ObjectInfo is one entry of an object listing.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// ObjectStore is the object-store capability the pipeline depends on.
// Implementations must be safe for concurrent use, return errors wrapping
// ErrNotFound for missing objects and ErrTransient for retryable failures.
type ObjectStore interface {
	// List returns every object under prefix, across all pages.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// ListPrefixes returns the common prefixes directly under prefix, each
	// ending in delimiter.
	ListPrefixes(ctx context.Context, prefix, delimiter string) ([]string, error)

	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, metadata map[string]string) error

	// Copy copies src to dst. With replaceMetadata the destination carries
	// metadata instead of the source's; copying an object onto itself this
	// way rewrites metadata without touching content.
	Copy(ctx context.Context, src, dst string, metadata map[string]string, replaceMetadata bool) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// MetadataLastModified is the metadata key set when a file passes validation.
const MetadataLastModified = "lastmodified"

// TouchMetadata returns the metadata that marks a file as validated at now.
func TouchMetadata(now time.Time) map[string]string {
	return map[string]string{MetadataLastModified: now.UTC().Format(time.RFC1123)}
}
