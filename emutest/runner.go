package emutest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/valerio/go-emutest/emutest/compare"
	"github.com/valerio/go-emutest/emutest/frame"
	"github.com/valerio/go-emutest/emutest/snapshot"
)

// EmulateFunc runs one candidate through the emulator under test and returns
// the captured frame. The harness treats it as opaque: it may be slow, fail
// or panic without affecting any other candidate.
type EmulateFunc func(candidate TestCandidate) (*frame.FrameBuffer, error)

// Runner drives a set of test candidates to completion under bounded
// parallelism, isolating per-candidate failures and producing a reproducible
// summary plus live progress notifications.
type Runner struct {
	store  snapshot.Store
	sink   Sink
	opts   Options
	logger *slog.Logger
}

// NewRunner validates the options and builds a runner. A nil sink discards
// progress notifications.
func NewRunner(store snapshot.Store, sink Sink, opts Options) (*Runner, error) {
	if store == nil {
		return nil, errors.New("snapshot store is required")
	}
	if sink == nil {
		sink = NopSink{}
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runner options: %w", err)
	}
	return &Runner{
		store:  store,
		sink:   sink,
		opts:   opts,
		logger: slog.Default(),
	}, nil
}

type indexedCandidate struct {
	index     int
	candidate TestCandidate
}

type indexedResult struct {
	index  int
	result Result
}

// Run emulates every candidate and returns the aggregated summary.
//
// Workers pull candidates from a shared queue, so no candidate is processed
// twice and two candidates never race on the same snapshot id. Each worker
// appends results to its own buffer; the buffers are merged and sorted by
// submission order only once, after all workers finish.
//
// Cancelling ctx stops dispatching new candidates. In-flight candidates
// finish (or time out) and the returned summary covers only resolved
// candidates, counting the rest as unresolved.
func (r *Runner) Run(ctx context.Context, candidates []TestCandidate, emulate EmulateFunc) (*Summary, error) {
	if emulate == nil {
		return nil, errors.New("emulate callback is required")
	}
	if err := r.sink.OnRunStart(len(candidates)); err != nil {
		return nil, fmt.Errorf("progress sink refused run start: %w", err)
	}

	start := time.Now()
	workers := r.opts.Workers
	if workers > len(candidates) && len(candidates) > 0 {
		workers = len(candidates)
	}

	jobs := make(chan indexedCandidate)
	go func() {
		defer close(jobs)
		for i, c := range candidates {
			select {
			case jobs <- indexedCandidate{index: i, candidate: c}:
			case <-ctx.Done():
				return
			}
		}
	}()

	buffers := make([][]indexedResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(buf *[]indexedResult) {
			defer wg.Done()
			for job := range jobs {
				res := r.runCandidate(job.candidate, emulate)
				*buf = append(*buf, indexedResult{index: job.index, result: res})
				if err := r.sink.OnResult(res); err != nil {
					r.logger.Warn("progress sink rejected result",
						"candidate", job.candidate.ID, "error", err)
				}
			}
		}(&buffers[w])
	}
	wg.Wait()

	merged := make([]indexedResult, 0, len(candidates))
	for _, buf := range buffers {
		merged = append(merged, buf...)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].index < merged[j].index })

	results := make([]Result, len(merged))
	for i, m := range merged {
		results[i] = m.result
	}

	summary := summarize(len(candidates), results, time.Since(start))
	if err := r.sink.OnRunEnd(summary); err != nil {
		return summary, fmt.Errorf("progress sink failed on run end: %w", err)
	}
	return summary, nil
}

func (r *Runner) runCandidate(c TestCandidate, emulate EmulateFunc) Result {
	start := time.Now()

	fb, err := r.callEmulate(c, emulate)
	if err != nil {
		return Result{Candidate: c, Err: err, Duration: time.Since(start)}
	}

	if r.opts.Mode == ModeUpdateBaselines {
		if err := r.store.Save(c.ID, fb); err != nil {
			return Result{
				Candidate: c,
				Err:       &StoreError{CandidateID: c.ID, Op: "save", Err: err},
				Duration:  time.Since(start),
			}
		}
		return Result{
			Candidate: c,
			Outcome:   compare.Outcome{Kind: compare.BaselineUpdated, FirstDiff: compare.Point{X: -1, Y: -1}},
			Duration:  time.Since(start),
		}
	}

	baseline, err := r.store.Load(c.ID)
	if err != nil {
		return Result{
			Candidate: c,
			Err:       &StoreError{CandidateID: c.ID, Op: "load", Err: err},
			Duration:  time.Since(start),
		}
	}

	return Result{
		Candidate: c,
		Outcome:   compare.Compare(fb, baseline, r.opts.Tolerance),
		Duration:  time.Since(start),
	}
}

type emulateResult struct {
	fb  *frame.FrameBuffer
	err error
}

// callEmulate invokes the callback on its own goroutine so a panic or an
// unresponsive callback stays confined to this candidate. On timeout the
// worker is reclaimed; the abandoned goroutine sends into a buffered channel
// and finishes in the background.
func (r *Runner) callEmulate(c TestCandidate, emulate EmulateFunc) (*frame.FrameBuffer, error) {
	done := make(chan emulateResult, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				done <- emulateResult{err: &EmulationError{
					CandidateID: c.ID,
					Panicked:    true,
					PanicValue:  fmt.Sprint(v),
				}}
			}
		}()

		fb, err := emulate(c)
		switch {
		case err != nil:
			done <- emulateResult{err: &EmulationError{CandidateID: c.ID, Err: err}}
		case fb == nil:
			done <- emulateResult{err: &EmulationError{
				CandidateID: c.ID,
				Err:         errors.New("callback returned no frame"),
			}}
		default:
			done <- emulateResult{fb: fb}
		}
	}()

	if r.opts.PerTestTimeout <= 0 {
		res := <-done
		return res.fb, res.err
	}

	timer := time.NewTimer(r.opts.PerTestTimeout)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.fb, res.err
	case <-timer.C:
		return nil, &EmulationError{CandidateID: c.ID, TimedOut: true}
	}
}
