package filters

import (
	"image"

	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/colorspace"
)

// Equalize stretches contrast by remapping luma through its cumulative
// distribution. Chroma planes are left untouched so hues do not shift.
type Equalize struct{}

// NewEqualize returns the luma histogram equalization filter.
func NewEqualize() *Equalize { return &Equalize{} }

// ShapeIO implements [pixtone.Filter].
func (*Equalize) ShapeIO() (output, input pixtone.Shape) {
	return pixtone.ShapeRGB888, pixtone.ShapeRGB888
}

// Controls implements [pixtone.Filter]. Equalization has no parameters.
func (*Equalize) Controls() []pixtone.Control { return nil }

// Process implements [pixtone.Filter].
func (*Equalize) Process(dst []byte, src pixtone.Image, roi *image.Rectangle) (pixtone.Dims, error) {
	pix, d, err := wholeImage(dst, src, roi)
	if err != nil {
		return pixtone.Dims{}, err
	}
	planes := colorspace.FromRGB(pix, d.Width, d.Height)
	lut := EqualizeLUT(planes.Histogram())
	for y := 0; y < d.Height; y++ {
		row := planes.Y.RowSlice(y)
		for x, v := range row {
			row[x] = float64(lut[colorspace.LumaBin(v)])
		}
	}
	planes.RGB(dst)
	return d, nil
}

// EqualizeLUT computes the CDF remapping table for a 256-bin histogram.
// The lowest populated bin maps to 0 and the highest to 255.
// A histogram with a single populated bin maps every level to itself.
func EqualizeLUT(hist [256]int) [256]uint8 {
	var lut [256]uint8
	total := 0
	for _, h := range hist {
		total += h
	}
	lo := 0
	for lo < 255 && hist[lo] == 0 {
		lo++
	}
	if total == 0 || hist[lo] == total {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}
	scale := 255 / float64(total-hist[lo])
	sum := 0
	for i := lo + 1; i < 256; i++ {
		sum += hist[i]
		lut[i] = pixtone.Clip8(float64(sum) * scale)
	}
	return lut
}
