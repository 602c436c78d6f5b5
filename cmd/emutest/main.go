package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/valerio/go-emutest/emutest"
	"github.com/valerio/go-emutest/emutest/compare"
	"github.com/valerio/go-emutest/emutest/frame"
	"github.com/valerio/go-emutest/emutest/history"
	"github.com/valerio/go-emutest/emutest/pattern"
	"github.com/valerio/go-emutest/emutest/report"
	"github.com/valerio/go-emutest/emutest/snapshot"
)

func main() {
	app := cli.NewApp()
	app.Name = "emutest"
	app.Usage = "snapshot testing harness for emulator output"
	app.Version = "1.0.0"
	app.Commands = []cli.Command{
		{
			Name:   "selftest",
			Usage:  "run the built-in pattern generators through the full harness",
			Action: runSelftest,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config",
					Usage: "Path to a YAML options file",
				},
				cli.StringFlag{
					Name:  "snapshot-dir",
					Usage: "Directory holding baseline snapshots",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "Number of parallel workers (default: number of CPUs)",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "Per-test timeout (0 = unbounded)",
				},
				cli.IntFlag{
					Name:  "threshold",
					Usage: "Per-channel difference threshold (0-255)",
				},
				cli.Float64Flag{
					Name:  "max-diff-fraction",
					Usage: "Largest fraction of pixels allowed to differ",
				},
				cli.BoolFlag{
					Name:  "update",
					Usage: "Write captured frames as the new baselines instead of comparing",
				},
				cli.BoolFlag{
					Name:  "live",
					Usage: "Show a live terminal progress view",
				},
				cli.BoolFlag{
					Name:  "verbose",
					Usage: "Print a line for passing tests too",
				},
				cli.StringFlag{
					Name:  "history-db",
					Usage: "Path to the run-history database (empty = no history)",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "Generated frame width",
					Value: 160,
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "Generated frame height",
					Value: 144,
				},
			},
		},
		{
			Name:      "compare",
			Usage:     "compare two PNG images with the configured tolerance",
			ArgsUsage: "<candidate.png> <baseline.png>",
			Action:    runCompare,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "threshold",
					Usage: "Per-channel difference threshold (0-255)",
				},
				cli.Float64Flag{
					Name:  "max-diff-fraction",
					Usage: "Largest fraction of pixels allowed to differ",
				},
				cli.StringFlag{
					Name:  "format",
					Usage: "Pixel format to compare in (rgb8, rgba8, grayscale8)",
					Value: "rgb8",
				},
			},
		},
		{
			Name:   "history",
			Usage:  "list recent runs from the history database",
			Action: runHistory,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "history-db",
					Usage: "Path to the run-history database",
					Value: "emutest-history.db",
				},
				cli.IntFlag{
					Name:  "limit",
					Usage: "Number of runs to list",
					Value: 10,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Error running emutest", "error", err)
		os.Exit(1)
	}
}

func runSelftest(c *cli.Context) error {
	opts, historyPath, err := loadOptions(c)
	if err != nil {
		return err
	}

	store, err := snapshot.NewDirStore(opts.SnapshotDir, frame.RGB8)
	if err != nil {
		return err
	}

	var previous map[string]string
	var hist *history.Store
	if historyPath != "" {
		hist, err = history.Open(historyPath)
		if err != nil {
			return err
		}
		defer hist.Close()

		previous, err = hist.LatestOutcomes(context.Background())
		if err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var sink emutest.Sink
	if c.Bool("live") {
		live, err := report.NewLiveSink()
		if err != nil {
			return err
		}
		live.OnInterrupt = cancel
		defer live.Close()
		sink = live
	} else {
		console := report.NewConsoleSink(nil)
		console.Verbose = c.Bool("verbose")
		console.Previous = previous
		sink = console
	}

	runner, err := emutest.NewRunner(store, sink, opts)
	if err != nil {
		return err
	}

	width := c.Int("width")
	height := c.Int("height")
	candidates := make([]emutest.TestCandidate, 0, len(pattern.All))
	for _, kind := range pattern.All {
		candidates = append(candidates, emutest.TestCandidate{ID: "pattern-" + kind.String()})
	}

	start := time.Now()
	summary, err := runner.Run(ctx, candidates, func(candidate emutest.TestCandidate) (*frame.FrameBuffer, error) {
		kind, err := pattern.ParseKind(strings.TrimPrefix(candidate.ID, "pattern-"))
		if err != nil {
			return nil, err
		}
		return pattern.Generate(kind, width, height, frame.RGB8), nil
	})
	if err != nil {
		return err
	}

	if hist != nil {
		// Record even after a cancelled run; the summary marks the
		// unresolved candidates.
		if err := hist.RecordRun(context.Background(), start, summary); err != nil {
			slog.Warn("Failed to record run history", "error", err)
		}
	}

	if !summary.Ok() {
		return cli.NewExitError("snapshot tests failed", 1)
	}
	return nil
}

func runCompare(c *cli.Context) error {
	if c.NArg() != 2 {
		cli.ShowCommandHelp(c, "compare")
		return cli.NewExitError("compare needs a candidate and a baseline image", 2)
	}

	format, err := parseFormat(c.String("format"))
	if err != nil {
		return err
	}

	candidate, err := snapshot.ReadFile(c.Args().Get(0), format)
	if err != nil {
		return fmt.Errorf("failed to read candidate image: %w", err)
	}
	baseline, err := snapshot.ReadFile(c.Args().Get(1), format)
	if err != nil {
		return fmt.Errorf("failed to read baseline image: %w", err)
	}

	tol := compare.Tolerance{
		PerChannelThreshold:       uint8(c.Int("threshold")),
		MaxDifferingPixelFraction: c.Float64("max-diff-fraction"),
	}
	if err := tol.Validate(); err != nil {
		return err
	}

	outcome := compare.Compare(candidate, baseline, tol)
	fmt.Println(outcome)
	if outcome.Kind != compare.Passed {
		return cli.NewExitError("", 1)
	}
	return nil
}

func runHistory(c *cli.Context) error {
	hist, err := history.Open(c.String("history-db"))
	if err != nil {
		return err
	}
	defer hist.Close()

	runs, err := hist.Runs(context.Background(), c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("#%d  %s  %d tests: %d passed, %d failed, %d errored, %d updated (%s)\n",
			run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Total, run.Passed, run.Failed, run.Errored, run.Updated, run.Duration)
	}
	return nil
}

// loadOptions resolves the effective options: YAML file first (when given),
// then flag overrides on top.
func loadOptions(c *cli.Context) (emutest.Options, string, error) {
	opts := emutest.DefaultOptions()
	historyPath := ""

	if path := c.String("config"); path != "" {
		var err error
		opts, historyPath, err = emutest.LoadOptionsFile(path)
		if err != nil {
			return opts, "", err
		}
	}

	if c.IsSet("snapshot-dir") {
		opts.SnapshotDir = c.String("snapshot-dir")
	}
	if c.IsSet("workers") {
		opts.Workers = c.Int("workers")
	}
	if c.IsSet("timeout") {
		opts.PerTestTimeout = c.Duration("timeout")
	}
	if c.IsSet("threshold") {
		opts.Tolerance.PerChannelThreshold = uint8(c.Int("threshold"))
	}
	if c.IsSet("max-diff-fraction") {
		opts.Tolerance.MaxDifferingPixelFraction = c.Float64("max-diff-fraction")
	}
	if c.Bool("update") {
		opts.Mode = emutest.ModeUpdateBaselines
	}
	if c.IsSet("history-db") {
		historyPath = c.String("history-db")
	}

	if err := opts.Validate(); err != nil {
		return opts, "", err
	}
	return opts, historyPath, nil
}

func parseFormat(name string) (frame.PixelFormat, error) {
	switch name {
	case "rgb8":
		return frame.RGB8, nil
	case "rgba8":
		return frame.RGBA8, nil
	case "grayscale8":
		return frame.Grayscale8, nil
	default:
		return 0, fmt.Errorf("unknown pixel format %q", name)
	}
}
