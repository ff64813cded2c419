package imageio

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/soypat/pixtone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testBuffer(t *testing.T) *pixtone.Buffer {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	pix := make([]byte, 12*8*3)
	rng.Read(pix)
	buf, err := pixtone.NewBufferFromPix(12, 8, pix)
	require.NoError(t, err)
	return buf
}

func TestLosslessRoundTrip(t *testing.T) {
	buf := testBuffer(t)
	for _, ext := range []string{"png", "bmp", "tiff"} {
		path := filepath.Join(t.TempDir(), "out."+ext)
		require.NoError(t, Save(path, buf, DefaultOptions), ext)
		got, err := Load(path)
		require.NoError(t, err, ext)
		assert.True(t, got.Equal(buf), "%s round trip differs by %d", ext, got.MaxAbsDiff(buf))
	}
}

func TestJPEGQuality(t *testing.T) {
	buf := testBuffer(t)
	low, _, err := EncodeBytes(buf, "jpg", Options{JPEGQuality: 10})
	require.NoError(t, err)
	high, _, err := EncodeBytes(buf, "jpeg", Options{JPEGQuality: 100})
	require.NoError(t, err)
	assert.Less(t, len(low), len(high))
	_, _, err = EncodeBytes(buf, "jpg", Options{JPEGQuality: 101})
	assert.ErrorIs(t, err, pixtone.ErrSave)
}

func TestDecodeDropsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 10})
	img.SetNRGBA(1, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	var b bytes.Buffer
	require.NoError(t, png.Encode(&b, img))
	buf, err := Decode(&b)
	require.NoError(t, err)
	r, g, bl := buf.At(1, 0)
	assert.Equal(t, []uint8{1, 2, 3}, []uint8{r, g, bl})
	assert.Equal(t, 2, buf.Width())
}

func TestDecodeBMP(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(2, 1, color.RGBA{R: 9, G: 8, B: 7, A: 255})
	var b bytes.Buffer
	require.NoError(t, bmp.Encode(&b, img))
	buf, err := Decode(&b)
	require.NoError(t, err)
	r, g, bl := buf.At(2, 1)
	assert.Equal(t, []uint8{9, 8, 7}, []uint8{r, g, bl})
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, pixtone.ErrLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Decode(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, pixtone.ErrLoad)
}

func TestSaveErrors(t *testing.T) {
	buf := testBuffer(t)
	dir := t.TempDir()
	err := Save(filepath.Join(dir, "out.xyz"), buf, DefaultOptions)
	assert.ErrorIs(t, err, pixtone.ErrSave)
	err = Save(filepath.Join(dir, "missing", "out.png"), buf, DefaultOptions)
	assert.ErrorIs(t, err, pixtone.ErrSave)
	err = Save(filepath.Join(dir, "out.png"), buf, Options{PNGCompression: "ultra"})
	assert.ErrorIs(t, err, pixtone.ErrSave)
	_, statErr := os.Stat(filepath.Join(dir, "out.png"))
	assert.ErrorIs(t, statErr, os.ErrNotExist, "failed save must not leave a file")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestSaveFileMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, Save(path, testBuffer(t), DefaultOptions))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestFormat(t *testing.T) {
	for in, want := range map[string]imaging.Format{
		"png": imaging.PNG, ".JPG": imaging.JPEG, "a/b/photo.jpeg": imaging.JPEG, "x.tif": imaging.TIFF, "gif": imaging.GIF,
	} {
		got, err := Format(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := Format("webp")
	assert.ErrorIs(t, err, pixtone.ErrSave)
	assert.Equal(t, "image/png", ContentType(imaging.PNG))
}
