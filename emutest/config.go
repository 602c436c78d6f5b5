package emutest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valerio/go-emutest/emutest/compare"
)

// optionsFile is the YAML shape of an options file. Durations are written as
// strings ("30s", "2m") and the run mode stays a CLI concern.
type optionsFile struct {
	Workers        int               `yaml:"workers"`
	PerTestTimeout string            `yaml:"per_test_timeout"`
	SnapshotDir    string            `yaml:"snapshot_dir"`
	HistoryDB      string            `yaml:"history_db"`
	Tolerance      compare.Tolerance `yaml:"tolerance"`
}

// LoadOptionsFile reads a YAML options file and overlays it on
// DefaultOptions. Unset fields keep their defaults. The second return value
// is the optional history database path, which lives in the file but not in
// Options.
func LoadOptionsFile(path string) (Options, string, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, "", fmt.Errorf("failed to read options file: %w", err)
	}

	var file optionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return opts, "", fmt.Errorf("failed to parse options file: %w", err)
	}

	if file.Workers != 0 {
		opts.Workers = file.Workers
	}
	if file.PerTestTimeout != "" {
		timeout, err := time.ParseDuration(file.PerTestTimeout)
		if err != nil {
			return opts, "", fmt.Errorf("invalid per_test_timeout: %w", err)
		}
		opts.PerTestTimeout = timeout
	}
	if file.SnapshotDir != "" {
		opts.SnapshotDir = file.SnapshotDir
	}
	opts.Tolerance = file.Tolerance

	if err := opts.Validate(); err != nil {
		return opts, "", fmt.Errorf("invalid options file: %w", err)
	}
	return opts, file.HistoryDB, nil
}
