// Package emutest is a snapshot-testing harness for emulator output. It runs
// a batch of test inputs through a caller-supplied emulation callback,
// captures the rendered frame and judges pass/fail by comparing it against a
// stored baseline with a configurable tolerance.
package emutest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// TestCandidate describes one unit of work: a stable unique id plus the path
// of the input the emulation callback should load. Candidates are immutable
// and consumed exactly once per run.
type TestCandidate struct {
	ID   string
	Path string
}

// FindCandidates walks dir recursively and returns a candidate for every
// file whose name ends in ext (e.g. ".gb"). The result is ordered by path so
// repeated runs submit candidates in the same order. Ids are derived from the
// file stem; when two files share a stem the relative path disambiguates.
func FindCandidates(dir, ext string) ([]TestCandidate, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ext) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover test candidates: %w", err)
	}

	stems := make(map[string]int, len(paths))
	for _, path := range paths {
		stems[stem(path)]++
	}

	candidates := make([]TestCandidate, 0, len(paths))
	for _, path := range paths {
		id := stem(path)
		if stems[id] > 1 {
			// Duplicate stems in different directories: use the relative
			// path (without extension) to keep ids unique.
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				rel = path
			}
			id = filepath.ToSlash(strings.TrimSuffix(rel, ext))
		}
		candidates = append(candidates, TestCandidate{ID: id, Path: path})
	}
	return candidates, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
