package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-emutest/emutest/frame"
)

func patternFrame(t *testing.T, format frame.PixelFormat) *frame.FrameBuffer {
	t.Helper()
	fb := frame.NewBlank(5, 4, format)
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			shade := byte(x*40 + y*10)
			switch format {
			case frame.Grayscale8:
				fb.SetPixel(x, y, shade)
			case frame.RGB8:
				fb.SetPixel(x, y, shade, shade/2, 255-shade)
			case frame.RGBA8:
				fb.SetPixel(x, y, shade, shade/2, 255-shade, 255)
			}
		}
	}
	return fb
}

func TestDirStore_RoundTrip(t *testing.T) {
	formats := []frame.PixelFormat{frame.RGB8, frame.RGBA8, frame.Grayscale8}

	for _, format := range formats {
		t.Run(format.String(), func(t *testing.T) {
			store, err := NewDirStore(t.TempDir(), format)
			require.NoError(t, err)

			fb := patternFrame(t, format)
			require.NoError(t, store.Save("round-trip", fb))

			loaded, err := store.Load("round-trip")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.True(t, fb.Equal(loaded), "decode(encode(frame)) must equal frame")
		})
	}
}

func TestDirStore_RoundTripTranslucentRGBA(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), frame.RGBA8)
	require.NoError(t, err)

	fb := frame.NewBlank(3, 3, frame.RGBA8)
	fb.SetPixel(0, 0, 200, 100, 50, 128)
	fb.SetPixel(2, 2, 10, 20, 30, 0)

	require.NoError(t, store.Save("translucent", fb))
	loaded, err := store.Load("translucent")
	require.NoError(t, err)
	assert.True(t, fb.Equal(loaded), "alpha must survive the round trip un-premultiplied")
}

func TestDirStore_MissingBaselineIsNotAnError(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), frame.RGB8)
	require.NoError(t, err)

	fb, err := store.Load("never-saved")
	assert.NoError(t, err)
	assert.Nil(t, fb)
	assert.False(t, store.Exists("never-saved"))
}

func TestDirStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir, frame.RGB8)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(store.Path("corrupt"), []byte("not a png"), 0644))

	fb, err := store.Load("corrupt")
	assert.Error(t, err, "a broken snapshot must surface, never read as missing")
	assert.Nil(t, fb)
	assert.True(t, store.Exists("corrupt"))
}

func TestDirStore_SaveOverwrites(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), frame.Grayscale8)
	require.NoError(t, err)

	first := frame.NewBlank(2, 2, frame.Grayscale8)
	require.NoError(t, store.Save("id", first))

	second := frame.NewBlank(2, 2, frame.Grayscale8)
	second.SetPixel(0, 0, 255)
	require.NoError(t, store.Save("id", second))

	loaded, err := store.Load("id")
	require.NoError(t, err)
	assert.True(t, second.Equal(loaded))
}

func TestDirStore_SanitizesIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDirStore(dir, frame.Grayscale8)
	require.NoError(t, err)

	id := `cpu_instrs/01-special:v2`
	require.NoError(t, store.Save(id, frame.NewBlank(2, 2, frame.Grayscale8)))

	assert.Equal(t, dir, filepath.Dir(store.Path(id)), "ids must not escape the snapshot directory")
	assert.True(t, store.Exists(id))

	loaded, err := store.Load(id)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestNewDirStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	_, err := NewDirStore(dir, frame.RGB8)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewDirStore_RejectsUnknownFormat(t *testing.T) {
	_, err := NewDirStore(t.TempDir(), frame.PixelFormat(42))
	assert.Error(t, err)
}
