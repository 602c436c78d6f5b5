package emutest

import "fmt"

// EmulationError records a per-candidate failure of the emulation callback:
// a returned error, a caught panic or an exceeded per-test timeout. It is
// always confined to its candidate and never aborts the batch.
type EmulationError struct {
	CandidateID string
	Err         error
	TimedOut    bool
	Panicked    bool
	PanicValue  string
}

func (e *EmulationError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("emulation of %q timed out", e.CandidateID)
	case e.Panicked:
		return fmt.Sprintf("emulation of %q panicked: %s", e.CandidateID, e.PanicValue)
	default:
		return fmt.Sprintf("emulation of %q failed: %v", e.CandidateID, e.Err)
	}
}

func (e *EmulationError) Unwrap() error { return e.Err }

// StoreError records a snapshot load or save failure for one candidate.
// It is deliberately distinct from a missing baseline; an unreadable
// snapshot must never masquerade as "no baseline yet".
type StoreError struct {
	CandidateID string
	Op          string // "load" or "save"
	Err         error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("snapshot %s for %q: %v", e.Op, e.CandidateID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
