package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types carried in the "event_type" header of published events.
const (
	EventQuarantined    = "quarantined"
	EventSummaryWritten = "summary_written"
)

// QuarantineEntry records one file moved into the quarantine area.
type QuarantineEntry struct {
	OriginalKey string    `json:"original_key"`
	Year        string    `json:"year"`
	StationID   string    `json:"station_id"`
	Reason      string    `json:"reason"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}

// SummaryWritten announces a freshly written yearly summary to downstream
// loaders.
type SummaryWritten struct {
	Year         string    `json:"year"`
	Key          string    `json:"key"`
	Sites        int       `json:"sites"`
	SkippedFiles int       `json:"skipped_files"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// OutputEvent is the serialized form destined for the event topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// SerializeQuarantineEntry encodes a quarantine entry keyed by its original
// object key.
func SerializeQuarantineEntry(runID string, entry QuarantineEntry) (OutputEvent, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize quarantine entry: %w", err)
	}
	return OutputEvent{
		Key:   []byte(entry.OriginalKey),
		Value: data,
		Headers: map[string]string{
			"event_type": EventQuarantined,
			"run_id":     runID,
			"reason":     entry.Reason,
			"created_at": entry.CreatedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

// SerializeSummaryWritten encodes a summary notification keyed by year.
func SerializeSummaryWritten(runID string, s SummaryWritten) (OutputEvent, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize summary event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(s.Year),
		Value: data,
		Headers: map[string]string{
			"event_type": EventSummaryWritten,
			"run_id":     runID,
			"created_at": s.GeneratedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
