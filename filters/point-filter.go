package filters

import (
	"image"

	"github.com/soypat/pixtone"
)

// PointFunc processes a contiguous row of pixels.
// dst and src contain rowWidth pixels worth of bytes.
// The function should iterate through pixels: for i := 0; i < len(src); i += bytesPerPixel { ... }
type PointFunc func(dst, src []byte)

// PointFilter applies a per-pixel transformation using a callback function.
// It handles the iteration, buffering, and ROI logic common to all per-pixel filters.
// The callback is invoked once per row with contiguous pixel data.
type PointFilter struct {
	In    pixtone.Shape
	Out   pixtone.Shape
	Fn    PointFunc
	Ctrls []pixtone.Control // User-defined controls for this filter.
}

// ShapeIO implements [pixtone.Filter].
func (f *PointFilter) ShapeIO() (output, input pixtone.Shape) {
	return f.Out, f.In
}

// Controls implements [pixtone.Filter].
func (f *PointFilter) Controls() []pixtone.Control {
	return f.Ctrls
}

// Process implements [pixtone.Filter].
func (f *PointFilter) Process(dst []byte, src pixtone.Image, roi *image.Rectangle) (pixtone.Dims, error) {
	if f.Fn == nil {
		return pixtone.Dims{}, errNilPixelFunc
	}

	outShape, inShape := f.ShapeIO()
	srcDims := src.Dims()
	if srcDims.Shape != inShape {
		return pixtone.Dims{}, errShapeMismatch
	}

	inBytesPerPixel := inShape.BytesPerPixel()
	outBytesPerPixel := outShape.BytesPerPixel()

	// Calculate output dimensions based on ROI or full image.
	var outWidth, outHeight int
	if roi != nil {
		outWidth, outHeight = roi.Dx(), roi.Dy()
	} else {
		outWidth, outHeight = srcDims.Width, srcDims.Height
	}
	outStride := outWidth * outBytesPerPixel

	dstDims := pixtone.Dims{
		Width:  outWidth,
		Height: outHeight,
		Stride: outStride,
		Shape:  outShape,
	}

	_, err := pixtone.ValidateProcessArgs(dst, dstDims, src, roi)
	if err != nil {
		return pixtone.Dims{}, err
	}

	// Determine source region to process.
	startX, startY := 0, 0
	endX, endY := srcDims.Width, srcDims.Height
	if roi != nil {
		startX, startY = roi.Min.X, roi.Min.Y
		endX, endY = roi.Max.X, roi.Max.Y
	}

	rowBuf := make([]byte, srcDims.SizeRow()) // Fallback buffer for ReadAt.
	for y := startY; y < endY; y++ {
		srcRow, err := pixtone.ImageRow(rowBuf, src, y)
		if err != nil {
			return pixtone.Dims{}, err
		}
		dstY := y - startY
		dstRowStart := dstY * outStride
		srcStart := startX * inBytesPerPixel
		srcEnd := endX * inBytesPerPixel

		// Process entire row at once.
		f.Fn(dst[dstRowStart:dstRowStart+outStride], srcRow[srcStart:srcEnd])
	}

	return dstDims, nil
}

// NewLUT returns an RGB888 point filter mapping every sample through lut.
func NewLUT(lut *[256]uint8, ctrls ...pixtone.Control) *PointFilter {
	return &PointFilter{
		In:  pixtone.ShapeRGB888,
		Out: pixtone.ShapeRGB888,
		Fn: func(dst, src []byte) {
			for i, v := range src {
				dst[i] = lut[v]
			}
		},
		Ctrls: ctrls,
	}
}

// wholeImage rejects ROIs for filters whose output depends on every pixel.
func wholeImage(dst []byte, src pixtone.Image, roi *image.Rectangle) (pix []byte, d pixtone.Dims, err error) {
	if roi != nil {
		return nil, d, errROIUnsupported
	}
	d = src.Dims()
	if d.Shape != pixtone.ShapeRGB888 {
		return nil, d, errShapeMismatch
	}
	dstDims := pixtone.Dims{Width: d.Width, Height: d.Height, Stride: d.Width * 3, Shape: pixtone.ShapeRGB888}
	if _, err = pixtone.ValidateProcessArgs(dst, dstDims, src, nil); err != nil {
		return nil, d, err
	}
	pix, d, err = pixtone.ReadPacked(src)
	return pix, dstDims, err
}

var (
	errNilPixelFunc   = errorString("nil PixelFunc")
	errShapeMismatch  = errorString("pixel shape mismatch")
	errROIUnsupported = errorString("filter needs the whole image and does not support ROI")
)

type errorString string

func (e errorString) Error() string { return string(e) }
