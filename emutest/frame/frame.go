package frame

import "fmt"

// PixelFormat identifies the channel layout of a FrameBuffer's pixel data.
type PixelFormat int

const (
	RGB8 PixelFormat = iota
	RGBA8
	Grayscale8
)

// BytesPerPixel returns the number of bytes one pixel occupies, or 0 for an
// unknown format.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case RGB8:
		return 3
	case RGBA8:
		return 4
	case Grayscale8:
		return 1
	default:
		return 0
	}
}

func (p PixelFormat) String() string {
	switch p {
	case RGB8:
		return "rgb8"
	case RGBA8:
		return "rgba8"
	case Grayscale8:
		return "grayscale8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(p))
	}
}

// FrameBuffer holds a single captured frame: dimensions, pixel format and the
// raw pixel data in row-major order. Once constructed the dimensions and
// format never change; pixel data is only written through SetPixel, which
// generators use while producing a frame.
type FrameBuffer struct {
	width  int
	height int
	format PixelFormat
	data   []byte
}

// New creates a frame buffer from existing pixel data. The data is copied.
// The length of data must match width*height*BytesPerPixel exactly; a
// mismatch is an error, never a truncation.
func New(width, height int, format PixelFormat, data []byte) (*FrameBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unknown pixel format %d", int(format))
	}
	want := width * height * bpp
	if len(data) != want {
		return nil, fmt.Errorf("frame data is %d bytes, want %d for %dx%d %s",
			len(data), want, width, height, format)
	}
	buf := make([]byte, want)
	copy(buf, data)
	return &FrameBuffer{width: width, height: height, format: format, data: buf}, nil
}

// NewBlank creates a zeroed frame buffer with the specified size and format.
// It panics on invalid dimensions or format, matching New's error cases.
func NewBlank(width, height int, format PixelFormat) *FrameBuffer {
	if width <= 0 || height <= 0 || format.BytesPerPixel() == 0 {
		panic(fmt.Sprintf("frame.NewBlank: invalid %dx%d %s", width, height, format))
	}
	return &FrameBuffer{
		width:  width,
		height: height,
		format: format,
		data:   make([]byte, width*height*format.BytesPerPixel()),
	}
}

func (f *FrameBuffer) Width() int  { return f.width }
func (f *FrameBuffer) Height() int { return f.height }

func (f *FrameBuffer) Format() PixelFormat { return f.format }

// Data returns the underlying pixel data. Callers must treat it as read-only.
func (f *FrameBuffer) Data() []byte { return f.data }

// Pixel returns the channel bytes for the pixel at (x, y).
func (f *FrameBuffer) Pixel(x, y int) []byte {
	bpp := f.format.BytesPerPixel()
	off := (y*f.width + x) * bpp
	return f.data[off : off+bpp]
}

// SetPixel writes the channel bytes for the pixel at (x, y). The number of
// channel values must match the pixel format.
func (f *FrameBuffer) SetPixel(x, y int, channels ...byte) {
	bpp := f.format.BytesPerPixel()
	if len(channels) != bpp {
		panic(fmt.Sprintf("frame.SetPixel: %d channel values for %s pixel", len(channels), f.format))
	}
	copy(f.data[(y*f.width+x)*bpp:], channels)
}

// Equal reports whether two frames have identical dimensions, format and
// pixel data.
func (f *FrameBuffer) Equal(other *FrameBuffer) bool {
	if other == nil {
		return false
	}
	if f.width != other.width || f.height != other.height || f.format != other.format {
		return false
	}
	for i := range f.data {
		if f.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the frame.
func (f *FrameBuffer) Clone() *FrameBuffer {
	data := make([]byte, len(f.data))
	copy(data, f.data)
	return &FrameBuffer{width: f.width, height: f.height, format: f.format, data: data}
}
