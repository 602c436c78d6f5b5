package emutest

// Sink receives progress notifications from a Runner. Implementations render
// them however they like; the runner only guarantees that OnRunStart is
// called once before any result, that OnResult is called exactly once per
// resolved candidate (from worker goroutines, in completion order, so
// implementations must be safe for concurrent use), and that OnRunEnd is
// called once after all candidates resolve.
type Sink interface {
	// OnRunStart announces the total candidate count. Returning an error
	// aborts the run before any candidate is dispatched.
	OnRunStart(total int) error

	// OnResult reports one completed candidate. Errors are logged and
	// otherwise ignored; progress display is best-effort.
	OnResult(result Result) error

	// OnRunEnd delivers the final summary.
	OnRunEnd(summary *Summary) error
}

// NopSink is a Sink that discards every notification.
type NopSink struct{}

func (NopSink) OnRunStart(int) error    { return nil }
func (NopSink) OnResult(Result) error   { return nil }
func (NopSink) OnRunEnd(*Summary) error { return nil }
