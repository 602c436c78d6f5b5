package report

import (
	"log/slog"

	"github.com/valerio/go-emutest/emutest"
)

// LogSink emits every progress event as a structured slog record. Handy for
// CI logs where a live display is useless but grep-able output is not.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink logs through logger, or slog.Default() when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) OnRunStart(total int) error {
	s.logger.Info("snapshot run starting", "tests", total)
	return nil
}

func (s *LogSink) OnResult(result emutest.Result) error {
	attrs := []any{
		"candidate", result.Candidate.ID,
		"status", result.Status(),
		"duration", result.Duration,
	}
	switch result.Status() {
	case "passed", "updated":
		s.logger.Info("test complete", attrs...)
	case "failed":
		attrs = append(attrs,
			"differing_pixels", result.Outcome.DifferingPixels,
			"differing_fraction", result.Outcome.DifferingFraction,
			"first_diff_x", result.Outcome.FirstDiff.X,
			"first_diff_y", result.Outcome.FirstDiff.Y,
		)
		s.logger.Warn("test failed", attrs...)
	case "error", "timeout", "store-error":
		attrs = append(attrs, "error", result.Err)
		s.logger.Error("test errored", attrs...)
	default:
		s.logger.Warn("test complete", attrs...)
	}
	return nil
}

func (s *LogSink) OnRunEnd(summary *emutest.Summary) error {
	s.logger.Info("snapshot run complete",
		"total", summary.Total,
		"passed", summary.Passed,
		"failed", summary.Failed,
		"errored", summary.Errored,
		"updated", summary.Updated,
		"missing_baseline", summary.MissingBaseline,
		"unresolved", summary.Unresolved,
		"duration", summary.Duration,
	)
	return nil
}
