// Package snapshot persists reference baseline frames keyed by test id.
// All side effects of the harness's snapshot lifecycle are confined here;
// the comparator and runner only go through the Store interface.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/valerio/go-emutest/emutest/frame"
)

// Store reads and writes reference baseline frames.
//
// The runner guarantees that each test id is processed by exactly one worker
// per run, so implementations only need to tolerate concurrent access for
// distinct ids.
type Store interface {
	// Load returns the baseline for id, or (nil, nil) when no baseline
	// exists. An error always indicates an I/O or decoding problem and is
	// never a stand-in for a missing baseline.
	Load(id string) (*frame.FrameBuffer, error)

	// Save writes fb as the new baseline for id, overwriting any previous
	// one.
	Save(id string, fb *frame.FrameBuffer) error

	// Exists reports whether a baseline exists for id.
	Exists(id string) bool
}

// DirStore keeps one PNG file per test id under a directory. All frames pass
// through the store's configured pixel format, so a frame in that format
// survives a save/load round trip unchanged.
type DirStore struct {
	dir    string
	format frame.PixelFormat
}

// NewDirStore creates the snapshot directory if needed and returns a store
// over it. A directory that cannot be created is a startup failure.
func NewDirStore(dir string, format frame.PixelFormat) (*DirStore, error) {
	if format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("unknown pixel format %d", int(format))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &DirStore{dir: dir, format: format}, nil
}

// Dir returns the directory the store writes into.
func (s *DirStore) Dir() string { return s.dir }

// Path returns the file a given test id is stored at.
func (s *DirStore) Path(id string) string {
	return filepath.Join(s.dir, sanitizeID(id)+".png")
}

func (s *DirStore) Load(id string) (*frame.FrameBuffer, error) {
	fb, err := ReadFile(s.Path(id), s.format)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load baseline for %q: %w", id, err)
	}
	return fb, nil
}

func (s *DirStore) Save(id string, fb *frame.FrameBuffer) error {
	if err := WriteFile(s.Path(id), fb); err != nil {
		return fmt.Errorf("failed to save baseline for %q: %w", id, err)
	}
	return nil
}

func (s *DirStore) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// sanitizeID maps a test id to a safe file stem. Ids come from ROM file
// stems and may contain spaces or punctuation; anything that could escape
// the snapshot directory is replaced.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		default:
			return r
		}
	}, id)
}
