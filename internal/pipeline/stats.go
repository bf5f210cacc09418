package pipeline

import (
	"sync"
	"sync/atomic"
)

// RunStats tracks aggregate counters across a batch run. Workers update it
// concurrently; counters only ever increase.
//
// Without cancellation, Processed+Skipped == Total once the run completes,
// and Failed <= Processed.
type RunStats struct {
	Total     atomic.Int64 // Files handed to the engine.
	Processed atomic.Int64 // Transforms attempted (dry-run included), whatever the result.
	Skipped   atomic.Int64 // Format undetected or not selected.
	Failed    atomic.Int64 // Transform or filesystem failure.
	Cancelled atomic.Int64 // Not attempted, or interrupted, because the run was cancelled.

	InputBytes  atomic.Int64 // Size of retimed files before the transform.
	OutputBytes atomic.Int64 // Size of retimed files after the transform.

	mu       sync.Mutex
	failures []Failure
}

// Failure records one file that failed and why.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Counts is a plain snapshot of RunStats counters.
type Counts struct {
	Total     int64 `json:"total"`
	Processed int64 `json:"processed"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// record applies one file's result to the counters.
func (s *RunStats) record(r Result, path string) {
	switch r.Outcome {
	case OutcomeDone:
		s.Processed.Add(1)
		s.InputBytes.Add(r.InputBytes)
		s.OutputBytes.Add(r.OutputBytes)
	case OutcomeFailed:
		s.Processed.Add(1)
		s.Failed.Add(1)
		msg := "unknown error"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		s.mu.Lock()
		s.failures = append(s.failures, Failure{Path: path, Error: msg})
		s.mu.Unlock()
	case OutcomeSkipped:
		s.Skipped.Add(1)
	case OutcomeCancelled:
		s.Cancelled.Add(1)
	}
}

// Snapshot returns the current counter values.
func (s *RunStats) Snapshot() Counts {
	return Counts{
		Total:     s.Total.Load(),
		Processed: s.Processed.Load(),
		Skipped:   s.Skipped.Load(),
		Failed:    s.Failed.Load(),
		Cancelled: s.Cancelled.Load(),
	}
}

// Failures returns a copy of the recorded failures, in completion order.
func (s *RunStats) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Failure, len(s.failures))
	copy(out, s.failures)
	return out
}

// SizeDelta returns the aggregate byte difference between inputs and
// outputs of retimed files. Positive means outputs are smaller.
func (s *RunStats) SizeDelta() int64 {
	return s.InputBytes.Load() - s.OutputBytes.Load()
}
