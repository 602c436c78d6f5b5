package emutest

import (
	"errors"
	"time"

	"github.com/valerio/go-emutest/emutest/compare"
)

// Result is the terminal record for one candidate. Exactly one of Outcome
// and Err is meaningful: when Err is nil the candidate was emulated and its
// frame reached the comparator (or the baseline store, in update mode).
type Result struct {
	Candidate TestCandidate
	Outcome   compare.Outcome
	Err       error
	Duration  time.Duration
}

// Status returns a short stable label for the result, used by sinks and the
// run history.
func (r Result) Status() string {
	if r.Err != nil {
		var emuErr *EmulationError
		if errors.As(r.Err, &emuErr) && emuErr.TimedOut {
			return "timeout"
		}
		var storeErr *StoreError
		if errors.As(r.Err, &storeErr) {
			return "store-error"
		}
		return "error"
	}
	switch r.Outcome.Kind {
	case compare.Passed:
		return "passed"
	case compare.Failed:
		return "failed"
	case compare.DimensionMismatch:
		return "dimension-mismatch"
	case compare.NoBaseline:
		return "no-baseline"
	case compare.BaselineUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Detail returns a human-readable one-liner describing the result.
func (r Result) Detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return r.Outcome.String()
}

// Summary aggregates a completed (or cancelled) run. Results are ordered by
// original submission order regardless of completion order, so reports are
// reproducible across runs. Counts are derived once from the ordered
// collection, never incremented concurrently.
type Summary struct {
	Total           int
	Passed          int
	Failed          int
	Errored         int
	Updated         int
	MissingBaseline int
	// Unresolved counts candidates that were never dispatched because the
	// run was cancelled.
	Unresolved int
	Duration   time.Duration
	Results    []Result
}

// Ok reports whether every candidate resolved and none failed. A missing
// baseline in compare mode counts as not ok; the caller decides how to
// present it.
func (s *Summary) Ok() bool {
	return s.Failed == 0 && s.Errored == 0 && s.MissingBaseline == 0 && s.Unresolved == 0
}

func summarize(total int, results []Result, duration time.Duration) *Summary {
	s := &Summary{
		Total:      total,
		Duration:   duration,
		Results:    results,
		Unresolved: total - len(results),
	}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Errored++
		case r.Outcome.Kind == compare.Passed:
			s.Passed++
		case r.Outcome.Kind == compare.Failed, r.Outcome.Kind == compare.DimensionMismatch:
			s.Failed++
		case r.Outcome.Kind == compare.BaselineUpdated:
			s.Updated++
		case r.Outcome.Kind == compare.NoBaseline:
			s.MissingBaseline++
		}
	}
	return s
}
