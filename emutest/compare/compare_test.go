package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-emutest/emutest/frame"
)

func blackFrame(t *testing.T, width, height int) *frame.FrameBuffer {
	t.Helper()
	return frame.NewBlank(width, height, frame.RGB8)
}

func TestCompare_IdenticalFramesPass(t *testing.T) {
	fb := frame.NewBlank(8, 8, frame.RGBA8)
	fb.SetPixel(3, 4, 1, 2, 3, 4)

	outcome := Compare(fb, fb.Clone(), Tolerance{})
	assert.Equal(t, Passed, outcome.Kind)
	assert.Equal(t, 0, outcome.DifferingPixels)
	assert.Equal(t, 64, outcome.ComparedPixels)
	assert.Equal(t, Point{-1, -1}, outcome.FirstDiff)
}

func TestCompare_NilBaseline(t *testing.T) {
	outcome := Compare(blackFrame(t, 2, 2), nil, Tolerance{})
	assert.Equal(t, NoBaseline, outcome.Kind)
}

func TestCompare_DimensionMismatch(t *testing.T) {
	tests := []struct {
		name     string
		baseline *frame.FrameBuffer
	}{
		{name: "different width", baseline: frame.NewBlank(3, 2, frame.RGB8)},
		{name: "different height", baseline: frame.NewBlank(2, 3, frame.RGB8)},
		{name: "different format", baseline: frame.NewBlank(2, 2, frame.Grayscale8)},
	}

	// Maximum tolerance must not turn a shape mismatch into a pass.
	tol := Tolerance{PerChannelThreshold: 255, MaxDifferingPixelFraction: 1}
	candidate := blackFrame(t, 2, 2)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Compare(candidate, tt.baseline, tol)
			assert.Equal(t, DimensionMismatch, outcome.Kind)
		})
	}
}

// The worked example from the harness design: a 3x3 all-black baseline and a
// candidate with one pixel shifted by 10 on every channel.
func TestCompare_SinglePixelShift(t *testing.T) {
	baseline := blackFrame(t, 3, 3)
	candidate := blackFrame(t, 3, 3)
	candidate.SetPixel(1, 1, 10, 10, 10)

	outcome := Compare(candidate, baseline, Tolerance{
		PerChannelThreshold:       20,
		MaxDifferingPixelFraction: 0.2,
	})
	assert.Equal(t, Passed, outcome.Kind, "10 <= 20 per channel, nothing differs")
	assert.Equal(t, 0, outcome.DifferingPixels)

	outcome = Compare(candidate, baseline, Tolerance{
		PerChannelThreshold:       5,
		MaxDifferingPixelFraction: 0.2,
	})
	assert.Equal(t, Passed, outcome.Kind, "1/9 differ but 0.111 <= 0.2")
	assert.Equal(t, 1, outcome.DifferingPixels)
	assert.InDelta(t, 1.0/9.0, outcome.DifferingFraction, 1e-9)

	outcome = Compare(candidate, baseline, Tolerance{
		PerChannelThreshold:       5,
		MaxDifferingPixelFraction: 0.05,
	})
	require.Equal(t, Failed, outcome.Kind)
	assert.Equal(t, 1, outcome.DifferingPixels)
	assert.InDelta(t, 1.0/9.0, outcome.DifferingFraction, 1e-9)
	assert.Equal(t, Point{1, 1}, outcome.FirstDiff)
}

func TestCompare_AnyChannelBeyondThresholdCounts(t *testing.T) {
	baseline := blackFrame(t, 1, 1)
	candidate := blackFrame(t, 1, 1)
	candidate.SetPixel(0, 0, 0, 0, 21)

	outcome := Compare(candidate, baseline, Tolerance{PerChannelThreshold: 20})
	assert.Equal(t, Failed, outcome.Kind, "a single channel over threshold marks the pixel")
}

func TestCompare_FirstDiffIsRowMajor(t *testing.T) {
	baseline := blackFrame(t, 4, 4)
	candidate := blackFrame(t, 4, 4)
	candidate.SetPixel(3, 1, 255, 255, 255)
	candidate.SetPixel(0, 2, 255, 255, 255)

	outcome := Compare(candidate, baseline, Tolerance{})
	assert.Equal(t, Failed, outcome.Kind)
	assert.Equal(t, Point{3, 1}, outcome.FirstDiff, "row 1 comes before row 2")
	assert.Equal(t, 2, outcome.DifferingPixels)
}

func TestCompare_IgnoredRegionsMaskDifferences(t *testing.T) {
	baseline := blackFrame(t, 8, 8)
	candidate := blackFrame(t, 8, 8)
	candidate.SetPixel(6, 6, 255, 255, 255)
	candidate.SetPixel(7, 7, 255, 255, 255)

	tol := Tolerance{IgnoredRegions: []Rect{{X: 6, Y: 6, W: 2, H: 2}}}
	outcome := Compare(candidate, baseline, tol)
	assert.Equal(t, Passed, outcome.Kind)
	assert.Equal(t, 64-4, outcome.ComparedPixels)

	// Same frames without the mask must fail.
	outcome = Compare(candidate, baseline, Tolerance{})
	assert.Equal(t, Failed, outcome.Kind)
}

func TestCompare_FullyMaskedFramePasses(t *testing.T) {
	baseline := blackFrame(t, 4, 4)
	candidate := blackFrame(t, 4, 4)
	candidate.SetPixel(0, 0, 255, 255, 255)

	tol := Tolerance{IgnoredRegions: []Rect{{X: 0, Y: 0, W: 4, H: 4}}}
	outcome := Compare(candidate, baseline, tol)
	assert.Equal(t, Passed, outcome.Kind, "nothing compared, nothing to disagree on")
	assert.Equal(t, 0, outcome.ComparedPixels)
	assert.Equal(t, 0.0, outcome.DifferingFraction)
}

// Loosening either threshold can only turn a failure into a pass, never the
// reverse.
func TestCompare_ToleranceMonotonicity(t *testing.T) {
	baseline := blackFrame(t, 6, 6)
	candidate := blackFrame(t, 6, 6)
	for x := 0; x < 6; x++ {
		candidate.SetPixel(x, 0, 30, 30, 30)
	}

	thresholds := []uint8{0, 10, 29, 30, 255}
	fractions := []float64{0, 0.1, 1.0 / 6.0, 0.5, 1}

	lastPassed := false
	for _, threshold := range thresholds {
		passed := Compare(candidate, baseline, Tolerance{
			PerChannelThreshold:       threshold,
			MaxDifferingPixelFraction: 0,
		}).Kind == Passed
		assert.False(t, lastPassed && !passed, "raising threshold to %d revoked a pass", threshold)
		lastPassed = passed
	}

	lastPassed = false
	for _, fraction := range fractions {
		passed := Compare(candidate, baseline, Tolerance{
			MaxDifferingPixelFraction: fraction,
		}).Kind == Passed
		assert.False(t, lastPassed && !passed, "raising fraction to %v revoked a pass", fraction)
		lastPassed = passed
	}
}

func TestToleranceValidate(t *testing.T) {
	assert.NoError(t, Tolerance{}.Validate())
	assert.NoError(t, Tolerance{MaxDifferingPixelFraction: 1}.Validate())
	assert.Error(t, Tolerance{MaxDifferingPixelFraction: -0.1}.Validate())
	assert.Error(t, Tolerance{MaxDifferingPixelFraction: 1.1}.Validate())
	assert.Error(t, Tolerance{IgnoredRegions: []Rect{{W: -1, H: 2}}}.Validate())
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 3, W: 4, H: 2}
	assert.True(t, r.Contains(2, 3))
	assert.True(t, r.Contains(5, 4))
	assert.False(t, r.Contains(6, 3), "right edge is exclusive")
	assert.False(t, r.Contains(2, 5), "bottom edge is exclusive")
	assert.False(t, r.Contains(1, 3))
}
