package snapshot

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/valerio/go-emutest/emutest/frame"
)

// WriteFile encodes a frame as a PNG file. Grayscale frames are written as
// 8-bit grayscale, RGB frames as opaque truecolor and RGBA frames with their
// alpha channel intact.
func WriteFile(path string, fb *frame.FrameBuffer) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, toImage(fb)); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	return nil
}

// ReadFile decodes a PNG file into a frame of the given pixel format.
func ReadFile(path string, format frame.PixelFormat) (*frame.FrameBuffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return fromImage(img, format)
}

func toImage(fb *frame.FrameBuffer) image.Image {
	bounds := image.Rect(0, 0, fb.Width(), fb.Height())
	data := fb.Data()

	switch fb.Format() {
	case frame.Grayscale8:
		img := image.NewGray(bounds)
		copy(img.Pix, data)
		return img
	case frame.RGBA8:
		img := image.NewNRGBA(bounds)
		copy(img.Pix, data)
		return img
	case frame.RGB8:
		img := image.NewNRGBA(bounds)
		for src, dst := 0, 0; src < len(data); src, dst = src+3, dst+4 {
			img.Pix[dst] = data[src]
			img.Pix[dst+1] = data[src+1]
			img.Pix[dst+2] = data[src+2]
			img.Pix[dst+3] = 0xFF
		}
		return img
	default:
		panic(fmt.Sprintf("snapshot: unknown pixel format %s", fb.Format()))
	}
}

func fromImage(img image.Image, format frame.PixelFormat) (*frame.FrameBuffer, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image has invalid dimensions %dx%d", width, height)
	}

	fb := frame.NewBlank(width, height, format)

	// Read NRGBA sources directly: going through At().RGBA() would
	// premultiply alpha and lose exactness for translucent pixels.
	if m, ok := img.(*image.NRGBA); ok && format == frame.RGBA8 {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := m.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
				fb.SetPixel(x, y, c.R, c.G, c.B, c.A)
			}
		}
		return fb, nil
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// RGBA() returns 16-bit channels; narrow back to 8 bits.
			// Grayscale sources replicate luma across r, g and b.
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			switch format {
			case frame.Grayscale8:
				fb.SetPixel(x, y, byte(r>>8))
			case frame.RGB8:
				fb.SetPixel(x, y, byte(r>>8), byte(g>>8), byte(b>>8))
			case frame.RGBA8:
				fb.SetPixel(x, y, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
			}
		}
	}
	return fb, nil
}
