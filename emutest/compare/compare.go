// Package compare implements the tolerance-based frame comparison at the
// heart of the snapshot harness. Comparisons are pure functions over frame
// buffers and are safe to run concurrently.
package compare

import (
	"fmt"

	"github.com/valerio/go-emutest/emutest/frame"
)

// Kind classifies the result of a single snapshot comparison.
type Kind int

const (
	// Passed means the candidate frame matched the baseline within tolerance.
	Passed Kind = iota
	// Failed means too many pixels differed beyond the configured tolerance.
	Failed
	// DimensionMismatch means the frames disagree on shape or pixel format.
	// Tolerance never applies to shape.
	DimensionMismatch
	// NoBaseline means no reference snapshot exists for the candidate yet.
	NoBaseline
	// BaselineUpdated means the frame was written as the new baseline
	// instead of being compared (update mode).
	BaselineUpdated
)

func (k Kind) String() string {
	switch k {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	case DimensionMismatch:
		return "dimension mismatch"
	case NoBaseline:
		return "no baseline"
	case BaselineUpdated:
		return "baseline updated"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Rect is an axis-aligned rectangle in pixel coordinates, used to mask
// known-nondeterministic regions out of a comparison.
type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Contains reports whether the pixel at (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Tolerance configures how much divergence still counts as a pass. The zero
// value demands an exact match. A Tolerance is shared read-only across all
// comparisons of a run and must not be mutated mid-run.
type Tolerance struct {
	// PerChannelThreshold is the largest absolute per-channel difference a
	// pixel may show without counting as differing.
	PerChannelThreshold uint8 `yaml:"per_channel_threshold"`
	// MaxDifferingPixelFraction is the largest fraction of compared pixels
	// allowed to differ, in [0, 1].
	MaxDifferingPixelFraction float64 `yaml:"max_differing_pixel_fraction"`
	// IgnoredRegions are excluded from the comparison entirely.
	IgnoredRegions []Rect `yaml:"ignored_regions"`
}

// Validate checks that the tolerance values are in range.
func (t Tolerance) Validate() error {
	if t.MaxDifferingPixelFraction < 0 || t.MaxDifferingPixelFraction > 1 {
		return fmt.Errorf("max differing pixel fraction %v outside [0, 1]", t.MaxDifferingPixelFraction)
	}
	for i, r := range t.IgnoredRegions {
		if r.W < 0 || r.H < 0 {
			return fmt.Errorf("ignored region %d has negative size %dx%d", i, r.W, r.H)
		}
	}
	return nil
}

// Point is a pixel coordinate.
type Point struct {
	X int
	Y int
}

// Outcome is the terminal, immutable result of one comparison.
type Outcome struct {
	Kind Kind

	// Populated for Passed and Failed.
	DifferingPixels   int
	ComparedPixels    int
	DifferingFraction float64
	// FirstDiff is the row-major coordinate of the first differing pixel,
	// or (-1, -1) when no pixel differed.
	FirstDiff Point

	// Populated for DimensionMismatch.
	ExpectedWidth  int
	ExpectedHeight int
	ExpectedFormat frame.PixelFormat
	ActualWidth    int
	ActualHeight   int
	ActualFormat   frame.PixelFormat
}

func (o Outcome) String() string {
	switch o.Kind {
	case Failed:
		return fmt.Sprintf("failed: %d of %d pixels differ (%.2f%%), first at (%d, %d)",
			o.DifferingPixels, o.ComparedPixels, o.DifferingFraction*100, o.FirstDiff.X, o.FirstDiff.Y)
	case DimensionMismatch:
		return fmt.Sprintf("dimension mismatch: baseline %dx%d %s, candidate %dx%d %s",
			o.ExpectedWidth, o.ExpectedHeight, o.ExpectedFormat,
			o.ActualWidth, o.ActualHeight, o.ActualFormat)
	default:
		return o.Kind.String()
	}
}

// Compare checks a candidate frame against a baseline under the given
// tolerance. A nil baseline yields NoBaseline; Compare never reads or writes
// snapshots itself.
//
// A pixel counts as differing when any of its channels differs by more than
// the per-channel threshold. If the ignored regions cover the whole frame
// there is nothing to disagree on and the outcome is Passed.
func Compare(candidate, baseline *frame.FrameBuffer, tol Tolerance) Outcome {
	if baseline == nil {
		return Outcome{Kind: NoBaseline, FirstDiff: Point{-1, -1}}
	}
	if candidate.Width() != baseline.Width() ||
		candidate.Height() != baseline.Height() ||
		candidate.Format() != baseline.Format() {
		return Outcome{
			Kind:           DimensionMismatch,
			FirstDiff:      Point{-1, -1},
			ExpectedWidth:  baseline.Width(),
			ExpectedHeight: baseline.Height(),
			ExpectedFormat: baseline.Format(),
			ActualWidth:    candidate.Width(),
			ActualHeight:   candidate.Height(),
			ActualFormat:   candidate.Format(),
		}
	}

	width := candidate.Width()
	height := candidate.Height()
	bpp := candidate.Format().BytesPerPixel()
	threshold := int(tol.PerChannelThreshold)
	cd := candidate.Data()
	bd := baseline.Data()

	compared := 0
	differing := 0
	first := Point{-1, -1}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if ignored(tol.IgnoredRegions, x, y) {
				continue
			}
			compared++
			off := (y*width + x) * bpp
			for c := 0; c < bpp; c++ {
				d := int(cd[off+c]) - int(bd[off+c])
				if d < 0 {
					d = -d
				}
				if d > threshold {
					if first.X < 0 {
						first = Point{x, y}
					}
					differing++
					break
				}
			}
		}
	}

	// Fully masked frame: nothing was compared, so nothing disagreed.
	if compared == 0 {
		return Outcome{Kind: Passed, FirstDiff: Point{-1, -1}}
	}

	out := Outcome{
		DifferingPixels:   differing,
		ComparedPixels:    compared,
		DifferingFraction: float64(differing) / float64(compared),
		FirstDiff:         first,
	}
	if out.DifferingFraction <= tol.MaxDifferingPixelFraction {
		out.Kind = Passed
	} else {
		out.Kind = Failed
	}
	return out
}

func ignored(regions []Rect, x, y int) bool {
	for _, r := range regions {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}
