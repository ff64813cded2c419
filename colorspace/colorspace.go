// Package colorspace converts packed RGB888 rasters to and from full-range
// YCbCr planes (JPEG / ITU-T T.800 irreversible color transform).
//
// Planes are float64 with chroma centered on zero, so a conversion round trip
// reproduces every 8-bit sample exactly after rounding.
package colorspace

import (
	"math"

	hwyimage "github.com/ajroetker/go-highway/hwy/contrib/image"
	"github.com/soypat/geometry/ms2"
)

// YCbCr holds the luma and chroma planes of an image.
type YCbCr struct {
	Y, Cb, Cr *hwyimage.Image[float64]
}

// Width returns the plane width in pixels.
func (p *YCbCr) Width() int { return p.Y.Width() }

// Height returns the plane height in pixels.
func (p *YCbCr) Height() int { return p.Y.Height() }

// FromRGB splits packed RGB888 rows into YCbCr planes.
func FromRGB(pix []byte, width, height int) *YCbCr {
	r := hwyimage.NewImage[float64](width, height)
	g := hwyimage.NewImage[float64](width, height)
	b := hwyimage.NewImage[float64](width, height)
	for y := 0; y < height; y++ {
		rr, gr, br := r.Row(y), g.Row(y), b.Row(y)
		src := pix[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			rr[x] = float64(src[3*x])
			gr[x] = float64(src[3*x+1])
			br[x] = float64(src[3*x+2])
		}
	}
	p := &YCbCr{
		Y:  hwyimage.NewImage[float64](width, height),
		Cb: hwyimage.NewImage[float64](width, height),
		Cr: hwyimage.NewImage[float64](width, height),
	}
	hwyimage.ForwardICT(r, g, b, p.Y, p.Cb, p.Cr)
	return p
}

// RGB recombines the planes into dst as packed RGB888, rounding and clipping
// each channel into [0,255]. dst must hold Width*Height*3 bytes.
func (p *YCbCr) RGB(dst []byte) {
	width, height := p.Width(), p.Height()
	r := hwyimage.NewImage[float64](width, height)
	g := hwyimage.NewImage[float64](width, height)
	b := hwyimage.NewImage[float64](width, height)
	hwyimage.InverseICT(p.Y, p.Cb, p.Cr, r, g, b)
	for _, plane := range []*hwyimage.Image[float64]{r, g, b} {
		hwyimage.ClampImage(plane, plane, 0, 255)
	}
	for y := 0; y < height; y++ {
		rr, gr, br := r.Row(y), g.Row(y), b.Row(y)
		out := dst[y*width*3 : (y+1)*width*3]
		for x := 0; x < width; x++ {
			out[3*x] = round8(rr[x])
			out[3*x+1] = round8(gr[x])
			out[3*x+2] = round8(br[x])
		}
	}
}

// round8 expects v already clamped into [0,255].
func round8(v float64) uint8 {
	if v != v {
		return 0
	}
	return uint8(math.Round(v))
}

// Luma returns the Y component of a single sample.
func Luma(r, g, b uint8) float64 {
	return hwyimage.ICT_RtoY*float64(r) + hwyimage.ICT_GtoY*float64(g) + hwyimage.ICT_BtoY*float64(b)
}

// Chroma returns the (Cb, Cr) components of a single sample as a vector.
// Its angle is the hue and its norm the chroma magnitude.
func Chroma(r, g, b uint8) ms2.Vec {
	rf, gf, bf := float64(r), float64(g), float64(b)
	cb := hwyimage.ICT_RtoCb*rf + hwyimage.ICT_GtoCb*gf + hwyimage.ICT_BtoCb*bf
	cr := hwyimage.ICT_RtoCr*rf + hwyimage.ICT_GtoCr*gf + hwyimage.ICT_BtoCr*bf
	return ms2.Vec{X: float32(cb), Y: float32(cr)}
}

// ChromaDistance is the Euclidean distance between two chroma vectors.
func ChromaDistance(a, b ms2.Vec) float64 {
	dx, dy := float64(a.X-b.X), float64(a.Y-b.Y)
	return math.Hypot(dx, dy)
}

// Histogram returns the 256-bin histogram of the rounded luma plane.
func (p *YCbCr) Histogram() [256]int {
	var hist [256]int
	for y := 0; y < p.Height(); y++ {
		for _, v := range p.Y.RowSlice(y) {
			hist[LumaBin(v)]++
		}
	}
	return hist
}

// LumaBin maps a luma value to its histogram bin.
func LumaBin(v float64) uint8 {
	if !(v > 0) {
		return 0
	} else if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
