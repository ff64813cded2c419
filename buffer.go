package pixtone

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
)

// Buffer is a decoded RGB888 raster that owns its pixel memory.
// Rows are tightly packed. Buffers handed to filters are never modified;
// every operator returns a freshly allocated Buffer.
type Buffer struct {
	width  int
	height int
	pix    []byte
}

var _ ImageBuffered = (*Buffer)(nil)

// NewBuffer returns a black buffer of the given size.
func NewBuffer(width, height int) *Buffer {
	if width <= 0 || height <= 0 {
		return &Buffer{}
	}
	return &Buffer{width: width, height: height, pix: make([]byte, width*height*3)}
}

// NewBufferFromPix wraps packed RGB888 data. The buffer takes ownership of pix.
func NewBufferFromPix(width, height int, pix []byte) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errEmptyImage
	}
	if len(pix) != width*height*3 {
		return nil, io.ErrShortBuffer
	}
	return &Buffer{width: width, height: height, pix: pix}, nil
}

// FromImage copies any [image.Image] into a new RGB888 Buffer. Alpha is dropped.
func FromImage(img image.Image) *Buffer {
	b := img.Bounds()
	buf := NewBuffer(b.Dx(), b.Dy())
	if buf.pix == nil {
		return buf
	}
	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < buf.height; y++ {
			row := src.Pix[(y)*src.Stride : (y)*src.Stride+buf.width*4]
			rgbaToRGB(buf.pix[y*buf.width*3:], row)
		}
	case *image.RGBA:
		for y := 0; y < buf.height; y++ {
			row := src.Pix[(y)*src.Stride : (y)*src.Stride+buf.width*4]
			rgbaToRGB(buf.pix[y*buf.width*3:], row)
		}
	default:
		nrgba := image.NewNRGBA(image.Rect(0, 0, buf.width, buf.height))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
		return FromImage(nrgba)
	}
	return buf
}

func rgbaToRGB(dst, src []byte) {
	j := 0
	for i := 0; i+3 < len(src); i += 4 {
		dst[j], dst[j+1], dst[j+2] = src[i], src[i+1], src[i+2]
		j += 3
	}
}

// Dims implements [Image].
func (b *Buffer) Dims() Dims {
	return Dims{Width: b.width, Height: b.height, Stride: b.width * 3, Shape: ShapeRGB888}
}

// ReadAt implements [io.ReaderAt].
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errorString("negative offset")
	}
	if off >= int64(len(b.pix)) {
		return 0, io.EOF
	}
	n := copy(p, b.pix[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Buffer implements [ImageBuffered]. The returned memory must not be written.
func (b *Buffer) Buffer() []byte { return b.pix }

func (b *Buffer) Width() int  { return b.width }
func (b *Buffer) Height() int { return b.height }

// Empty reports whether the buffer holds no pixels.
func (b *Buffer) Empty() bool { return b == nil || len(b.pix) == 0 }

// At returns the RGB sample at (x, y).
func (b *Buffer) At(x, y int) (r, g, bl uint8) {
	i := (y*b.width + x) * 3
	return b.pix[i], b.pix[i+1], b.pix[i+2]
}

// Clone returns an independent copy of b.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{width: b.width, height: b.height}
	if b.pix != nil {
		c.pix = bytes.Clone(b.pix)
	}
	return c
}

// Equal reports whether both buffers have the same size and identical samples.
func (b *Buffer) Equal(other *Buffer) bool {
	return b.width == other.width && b.height == other.height && bytes.Equal(b.pix, other.pix)
}

// MaxAbsDiff returns the largest per-sample absolute difference between two
// buffers of the same size, or -1 if their sizes differ.
func (b *Buffer) MaxAbsDiff(other *Buffer) int {
	if b.width != other.width || b.height != other.height {
		return -1
	}
	maxd := 0
	for i := range b.pix {
		d := int(b.pix[i]) - int(other.pix[i])
		if d < 0 {
			d = -d
		}
		maxd = max(maxd, d)
	}
	return maxd
}

// NRGBA returns an opaque copy of b as a standard library image.
func (b *Buffer) NRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	j := 0
	for i := 0; i+2 < len(b.pix); i += 3 {
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = b.pix[i], b.pix[i+1], b.pix[i+2], 255
		j += 4
	}
	return img
}

// RGBA returns an opaque copy of b as an [image.RGBA], the layout GPU filters consume.
func (b *Buffer) RGBA() *image.RGBA {
	n := b.NRGBA()
	// Opaque NRGBA and RGBA share the same byte layout.
	return &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
}

func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// ColorAt returns the sample at (x, y) as an opaque [color.RGBA].
func (b *Buffer) ColorAt(x, y int) color.RGBA {
	r, g, bl := b.At(x, y)
	return color.RGBA{R: r, G: g, B: bl, A: 255}
}

// Float returns the normalized [0,1] view of the samples.
func (b *Buffer) Float() []float64 {
	f := make([]float64, len(b.pix))
	for i, v := range b.pix {
		f[i] = float64(v) / 255
	}
	return f
}

// FromFloat builds a buffer from normalized samples, clipping into [0,1]
// and rounding to the nearest 8-bit level. NaN samples map to 0.
func FromFloat(width, height int, samples []float64) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, errEmptyImage
	}
	if len(samples) != width*height*3 {
		return nil, io.ErrShortBuffer
	}
	pix := make([]byte, len(samples))
	for i, v := range samples {
		pix[i] = Quantize(v)
	}
	return &Buffer{width: width, height: height, pix: pix}, nil
}

// Quantize maps a normalized sample to its nearest 8-bit level, clipping into range.
func Quantize(v float64) uint8 {
	return Clip8(v * 255)
}

// Clip8 rounds v to the nearest integer and clips it into [0,255].
func Clip8(v float64) uint8 {
	if !(v > 0) { // Also catches NaN.
		return 0
	} else if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
