// Package pattern generates deterministic test frames: checkerboards,
// gradients and stripes. The generators double as a stand-in emulator for
// the CLI selftest and for exercising the harness in tests without a real
// emulator core.
package pattern

import (
	"fmt"

	"github.com/valerio/go-emutest/emutest/frame"
)

// Kind selects a pattern.
type Kind int

const (
	Checkerboard Kind = iota
	Gradient
	Stripes
	Diagonal
)

// All lists every pattern kind in a stable order.
var All = []Kind{Checkerboard, Gradient, Stripes, Diagonal}

func (k Kind) String() string {
	switch k {
	case Checkerboard:
		return "checkerboard"
	case Gradient:
		return "gradient"
	case Stripes:
		return "stripes"
	case Diagonal:
		return "diagonal"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a pattern name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range All {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", name)
}

const (
	tileSize    = 8
	stripeWidth = 4
	maxShade    = 255
)

// Generate renders a pattern into a fresh frame of the given size and
// format. Output depends only on the arguments.
func Generate(kind Kind, width, height int, format frame.PixelFormat) *frame.FrameBuffer {
	fb := frame.NewBlank(width, height, format)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			setShade(fb, x, y, shadeAt(kind, x, y, width))
		}
	}
	return fb
}

func shadeAt(kind Kind, x, y, width int) byte {
	switch kind {
	case Checkerboard:
		if (x/tileSize+y/tileSize)%2 == 0 {
			return maxShade
		}
		return 0
	case Gradient:
		if width <= 1 {
			return 0
		}
		return byte(x * maxShade / (width - 1))
	case Stripes:
		if (x/stripeWidth)%2 == 0 {
			return maxShade
		}
		return 0
	case Diagonal:
		if ((x+y)/tileSize)%2 == 0 {
			return maxShade
		}
		return 0
	default:
		return 0
	}
}

func setShade(fb *frame.FrameBuffer, x, y int, shade byte) {
	switch fb.Format() {
	case frame.Grayscale8:
		fb.SetPixel(x, y, shade)
	case frame.RGB8:
		fb.SetPixel(x, y, shade, shade, shade)
	case frame.RGBA8:
		fb.SetPixel(x, y, shade, shade, shade, maxShade)
	}
}
