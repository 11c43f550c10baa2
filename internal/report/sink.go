package report

import (
	"sort"
	"sync"

	"github.com/datavet/datavet/internal/checks"
)

// Sink collects check results from concurrent workers.
//
// Records are appended whole under a mutex, so a reader of the finalized
// report never observes a torn record. Append order is whatever the
// scheduler produced; Finalize normalizes it, which is where determinism
// comes from.
type Sink struct {
	mu      sync.Mutex
	results []checks.Result
	closed  bool
}

// NewSink returns an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Add appends one result. Safe for concurrent use. Adds after Finalize
// panic: the runner guarantees every worker has drained first.
func (s *Sink) Add(r checks.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		panic("report: Add after Finalize")
	}
	s.results = append(s.results, r)
}

// Len returns the number of collected results.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// Finalize closes the sink and builds the report: results normalized
// into canonical order, totals tallied, verdict computed.
func (s *Sink) Finalize(meta Meta) *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true

	results := make([]checks.Result, len(s.results))
	copy(results, s.results)
	normalize(results)

	tables := make([]string, len(meta.Tables))
	copy(tables, meta.Tables)
	sort.Strings(tables)

	return &Report{
		RunToken:       meta.RunToken,
		TriggerCounter: meta.TriggerCounter,
		Environment:    meta.Environment,
		RunMode:        meta.RunMode,
		StartedAt:      meta.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Tables:         tables,
		Checks:         results,
		Totals:         tally(results),
		Verdict:        ComputeVerdict(results),
	}
}
