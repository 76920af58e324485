package domain

import (
	"fmt"
	"strings"
)

const (
	// SummaryPrefix is the namespace holding yearly summaries.
	SummaryPrefix = "year_average/"

	// QuarantinePrefix is the namespace holding quarantined files.
	QuarantinePrefix = "_data_error/"

	// minDataKeyLen is the longest key that is still structural, e.g. a
	// "1929/" folder marker.
	minDataKeyLen = 6
)

// SummaryKey returns the object key of the summary for year.
func SummaryKey(year string) string {
	return SummaryPrefix + "avg_" + year + ".csv"
}

// QuarantineKey returns the quarantine object key for a station-year file.
func QuarantineKey(year, stationID string, reason Verdict) string {
	return fmt.Sprintf("%s%s-%s-%s.csv", QuarantinePrefix, year, stationID, reason)
}

// IsDataKey reports whether key can name a station-year file. Folder markers,
// keys too short to be real files, and anything in the summary or quarantine
// namespaces are structural.
func IsDataKey(key string) bool {
	if len(key) <= minDataKeyLen {
		return false
	}
	return !IsReservedKey(key)
}

// IsReservedKey reports whether key belongs to the summary or quarantine
// namespace.
func IsReservedKey(key string) bool {
	return strings.Contains(key, strings.TrimSuffix(SummaryPrefix, "/")) ||
		strings.Contains(key, strings.TrimSuffix(QuarantinePrefix, "/"))
}

// ParseStationKey splits a "{year}/{station}.csv" key into its year and
// station id. The extension is stripped from the first '.' onwards.
func ParseStationKey(key string) (year, stationID string, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("station key %q: want 2 path segments, got %d", key, len(parts))
	}
	year = parts[0]
	stationID, _, _ = strings.Cut(parts[1], ".")
	if year == "" || stationID == "" {
		return "", "", fmt.Errorf("station key %q: empty year or station", key)
	}
	return year, stationID, nil
}

// Layout places the data tree under a root folder of the bucket. Partitions,
// summaries and quarantined files all live below Root, and station keys are
// interpreted relative to it.
type Layout struct {
	Root string
}

// NewLayout derives the layout for a partition prefix. Root is the prefix up
// to and including its last '/', so "noaa/19" and "noaa/" both root the tree
// at "noaa/" while "19" roots it at the bucket top.
func NewLayout(prefix string) Layout {
	i := strings.LastIndex(prefix, "/")
	return Layout{Root: prefix[:i+1]}
}

// Relative strips Root from key. ok is false when key is outside the tree.
func (l Layout) Relative(key string) (rel string, ok bool) {
	if !strings.HasPrefix(key, l.Root) {
		return "", false
	}
	return key[len(l.Root):], true
}

// Year returns the year named by a partition.
func (l Layout) Year(partition string) string {
	rel, _ := l.Relative(partition)
	return strings.TrimSuffix(rel, "/")
}

// SummaryKey returns the summary key for year under Root.
func (l Layout) SummaryKey(year string) string {
	return l.Root + SummaryKey(year)
}

// QuarantinePrefix returns the quarantine folder under Root.
func (l Layout) QuarantinePrefix() string {
	return l.Root + QuarantinePrefix
}

// QuarantineKey returns the quarantine key for a station-year file under Root.
func (l Layout) QuarantineKey(year, stationID string, reason Verdict) string {
	return l.Root + QuarantineKey(year, stationID, reason)
}

// IsDataKey reports whether key can name a station-year file in the tree.
func (l Layout) IsDataKey(key string) bool {
	rel, ok := l.Relative(key)
	return ok && IsDataKey(rel)
}

// ParseStationKey parses a station key relative to Root.
func (l Layout) ParseStationKey(key string) (year, stationID string, err error) {
	rel, ok := l.Relative(key)
	if !ok {
		return "", "", fmt.Errorf("station key %q: outside %q", key, l.Root)
	}
	return ParseStationKey(rel)
}
