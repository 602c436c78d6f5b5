package emutest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-emutest/emutest/compare"
)

func writeOptionsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "emutest.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadOptionsFile(t *testing.T) {
	path := writeOptionsFile(t, `
workers: 2
per_test_timeout: 30s
snapshot_dir: roms/expected
history_db: .emutest/history.db
tolerance:
  per_channel_threshold: 12
  max_differing_pixel_fraction: 0.05
  ignored_regions:
    - {x: 0, y: 0, w: 64, h: 8}
    - {x: 120, y: 136, w: 40, h: 8}
`)

	opts, historyDB, err := LoadOptionsFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, 30*time.Second, opts.PerTestTimeout)
	assert.Equal(t, "roms/expected", opts.SnapshotDir)
	assert.Equal(t, ".emutest/history.db", historyDB)
	assert.Equal(t, uint8(12), opts.Tolerance.PerChannelThreshold)
	assert.Equal(t, 0.05, opts.Tolerance.MaxDifferingPixelFraction)
	assert.Equal(t, []compare.Rect{
		{X: 0, Y: 0, W: 64, H: 8},
		{X: 120, Y: 136, W: 40, H: 8},
	}, opts.Tolerance.IgnoredRegions)
}

func TestLoadOptionsFile_DefaultsForUnsetFields(t *testing.T) {
	path := writeOptionsFile(t, `workers: 3`)

	opts, historyDB, err := LoadOptionsFile(path)
	require.NoError(t, err)

	defaults := DefaultOptions()
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, defaults.SnapshotDir, opts.SnapshotDir)
	assert.Equal(t, time.Duration(0), opts.PerTestTimeout)
	assert.Empty(t, historyDB)
}

func TestLoadOptionsFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad yaml", content: "workers: [not an int"},
		{name: "bad duration", content: "per_test_timeout: soon"},
		{name: "negative workers", content: "workers: -2"},
		{name: "fraction out of range", content: "tolerance:\n  max_differing_pixel_fraction: 1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeOptionsFile(t, tt.content)
			_, _, err := LoadOptionsFile(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadOptionsFile_MissingFile(t *testing.T) {
	_, _, err := LoadOptionsFile(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.PerTestTimeout = -time.Second
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.Mode = Mode(9)
	assert.Error(t, opts.Validate())

	opts = DefaultOptions()
	opts.SnapshotDir = ""
	assert.Error(t, opts.Validate())
}
