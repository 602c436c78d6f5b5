package emutest

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/valerio/go-emutest/emutest/compare"
)

// Mode selects what the runner does with a captured frame.
type Mode int

const (
	// ModeCompare checks each frame against the stored baseline.
	ModeCompare Mode = iota
	// ModeUpdateBaselines writes each frame as the new baseline instead of
	// comparing.
	ModeUpdateBaselines
)

func (m Mode) String() string {
	switch m {
	case ModeCompare:
		return "compare"
	case ModeUpdateBaselines:
		return "update-baselines"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Options configures a run. An Options value is read-only for the duration
// of a run.
type Options struct {
	// Workers bounds the number of candidates emulated in parallel.
	Workers int
	// PerTestTimeout converts an unresponsive emulation callback into a
	// timeout error for that candidate alone. Zero means unbounded.
	PerTestTimeout time.Duration
	// Tolerance is shared by every comparison of the run. The zero value
	// demands exact matches.
	Tolerance compare.Tolerance
	Mode      Mode
	// SnapshotDir is where the default directory store keeps baselines.
	SnapshotDir string
}

// DefaultOptions returns options with the worker count derived from the
// available hardware parallelism and zero tolerance.
func DefaultOptions() Options {
	return Options{
		Workers:     runtime.NumCPU(),
		SnapshotDir: "testdata/snapshots",
	}
}

// Validate checks options before any candidate is dispatched. Invalid
// configuration is fatal to the whole run.
func (o Options) Validate() error {
	if o.Workers < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", o.Workers)
	}
	if o.PerTestTimeout < 0 {
		return fmt.Errorf("per-test timeout must not be negative, got %s", o.PerTestTimeout)
	}
	if o.Mode != ModeCompare && o.Mode != ModeUpdateBaselines {
		return fmt.Errorf("unknown run mode %d", int(o.Mode))
	}
	if err := o.Tolerance.Validate(); err != nil {
		return fmt.Errorf("invalid tolerance: %w", err)
	}
	if o.SnapshotDir == "" {
		return errors.New("snapshot directory must not be empty")
	}
	return nil
}
