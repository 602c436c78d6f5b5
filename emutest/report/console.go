// Package report provides ready-made progress sinks for the harness: a plain
// console formatter, a structured-log sink for CI output and a tcell-based
// live view. Any type satisfying emutest.Sink works in their place.
package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/valerio/go-emutest/emutest"
)

// ConsoleSink is the reference console formatter: a run header, a line per
// non-passing result (every result when Verbose), failure and error detail
// blocks and a final tally.
type ConsoleSink struct {
	// Verbose prints a line for passing candidates too.
	Verbose bool
	// Previous maps candidate ids to their status in the previous run,
	// usually loaded from the run history. When set, the final tally
	// annotates newly passing and newly failing counts.
	Previous map[string]string

	mu        sync.Mutex
	w         io.Writer
	total     int
	completed int
}

// NewConsoleSink writes to w, or stdout when w is nil.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{w: w}
}

func (s *ConsoleSink) OnRunStart(total int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.completed = 0
	_, err := fmt.Fprintf(s.w, "=== running %d snapshot tests ===\n", total)
	return err
}

func (s *ConsoleSink) OnResult(result emutest.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	if !s.Verbose && result.Status() == "passed" {
		return nil
	}
	_, err := fmt.Fprintf(s.w, "[%d/%d] %-18s %s (%s)\n",
		s.completed, s.total, result.Status(), result.Candidate.ID, result.Duration.Round(time.Millisecond))
	return err
}

func (s *ConsoleSink) OnRunEnd(summary *emutest.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range summary.Results {
		switch r.Status() {
		case "passed", "updated":
		default:
			fmt.Fprintf(s.w, "\n--- %s ---\n", r.Candidate.ID)
			fmt.Fprintf(s.w, "    %s\n", r.Detail())
		}
	}

	newlyPassing, newlyFailing := s.deltas(summary)

	fmt.Fprintf(s.w, "\n=== %d tests in %s ===\n", summary.Total, summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(s.w, "  passed:           %d%s\n", summary.Passed, annotate(newlyPassing, "newly passing"))
	fmt.Fprintf(s.w, "  failed:           %d%s\n", summary.Failed, annotate(newlyFailing, "new"))
	fmt.Fprintf(s.w, "  errored:          %d\n", summary.Errored)
	if summary.Updated > 0 {
		fmt.Fprintf(s.w, "  updated:          %d\n", summary.Updated)
	}
	if summary.MissingBaseline > 0 {
		fmt.Fprintf(s.w, "  missing baseline: %d\n", summary.MissingBaseline)
	}
	if summary.Unresolved > 0 {
		fmt.Fprintf(s.w, "  unresolved:       %d (run cancelled)\n", summary.Unresolved)
	}
	return nil
}

// deltas compares this run's statuses against the previous run's.
func (s *ConsoleSink) deltas(summary *emutest.Summary) (newlyPassing, newlyFailing int) {
	if s.Previous == nil {
		return 0, 0
	}
	for _, r := range summary.Results {
		prev, seen := s.Previous[r.Candidate.ID]
		if !seen {
			continue
		}
		switch r.Status() {
		case "passed":
			if prev != "passed" {
				newlyPassing++
			}
		case "failed", "dimension-mismatch":
			if prev == "passed" {
				newlyFailing++
			}
		}
	}
	return newlyPassing, newlyFailing
}

func annotate(n int, label string) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d %s)", n, label)
}
