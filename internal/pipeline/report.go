package pipeline

import (
	"maps"
	"sync"

	"github.com/couchcryptid/station-data-etl-service/internal/domain"
)

// Report summarizes one pipeline run.
type Report struct {
	RunID      string
	Partitions int
	Discovered int
	Batches    int

	Valid       int
	Quarantined map[string]int // by reason code
	Skipped     int
	Failed      int

	YearsWritten int
	YearsSkipped int
	YearsFailed  int
	Sites        int
}

// QuarantinedTotal returns the number of files moved into quarantine.
func (r Report) QuarantinedTotal() int {
	n := 0
	for _, c := range r.Quarantined {
		n += c
	}
	return n
}

// LogAttrs flattens the report for structured logging.
func (r Report) LogAttrs() []any {
	attrs := []any{
		"run_id", r.RunID,
		"partitions", r.Partitions,
		"discovered", r.Discovered,
		"batches", r.Batches,
		"valid", r.Valid,
		"quarantined", r.QuarantinedTotal(),
		"skipped", r.Skipped,
		"failed", r.Failed,
		"years_written", r.YearsWritten,
		"years_skipped", r.YearsSkipped,
		"years_failed", r.YearsFailed,
		"sites", r.Sites,
	}
	for _, v := range domain.Verdicts[1:] {
		if n := r.Quarantined[v.String()]; n > 0 {
			attrs = append(attrs, "quarantined_"+v.String(), n)
		}
	}
	return attrs
}

// runState is the report under construction, shared by concurrent batches.
type runState struct {
	mu      sync.Mutex
	report  Report
	yearErr []error
}

func newRunState(runID string) *runState {
	return &runState{report: Report{RunID: runID, Quarantined: make(map[string]int)}}
}

func (s *runState) addBatch(res BatchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report.Valid += res.Touched
	s.report.Skipped += res.Skipped
	s.report.Failed += res.Failed
	for _, e := range res.Quarantined {
		s.report.Quarantined[e.Reason]++
	}
}

func (s *runState) addYear(res AggregateResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err != nil:
		s.report.YearsFailed++
		s.yearErr = append(s.yearErr, err)
	case res.Skipped:
		s.report.YearsSkipped++
	default:
		s.report.YearsWritten++
		s.report.Sites += res.Sites
	}
}

func (s *runState) snapshot() Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.report
	r.Quarantined = maps.Clone(s.report.Quarantined)
	return r
}

func (s *runState) yearErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.yearErr...)
}
