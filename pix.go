package pixtone

import (
	"image"
	"io"
)

// Image is a low-level, whole-buffer image access abstraction of raw memory.
// As made implicit by Dims signature, row spacing must be homogenous in images.
type Image interface {
	// Dims returns information on in-memory image structure.
	// Row spacing must be homogenous in entire image separated by stride bytes.
	Dims() Dims
	// ReadAt reads from the image buffer of pixels.
	//
	// Users should always try casting [Image] to [ImageBuffered]
	// to see if they can work with the image in-memory which is more efficient.
	io.ReaderAt
}

type ImageBuffered interface {
	Image
	// Buffer returns the raw underlying buffer for images stored in memory
	// or nil to signal buffer is currently not in memory.
	// Callers must treat the returned slice as read-only.
	Buffer() []byte
}

// Filter is a tone operator over a whole image.
//
// Operators never write to src. Process always writes into dst, which must
// be large enough to hold the output described by ShapeIO and the ROI.
type Filter interface {
	// ShapeIO returns expected output and input [Shape] of the filter.
	// output shape MUST match Process [Dims.Shape] output.
	ShapeIO() (output, input Shape)
	// Process processes an input image and writes the result to
	// destination buffer and returns the dimensions of the resulting image.
	// Filters that need the whole image to compute their result
	// (histograms, means, convolutions) reject a non-nil roi.
	// Use [ValidateProcessArgs] to validate arguments.
	Process(dst []byte, src Image, roi *image.Rectangle) (Dims, error)
	// Controls returns the actual controls of the filter.
	// Controls should remain valid even after calling [Control.ChangeValue]
	// and their [Control.ActualValue] return the updated value.
	Controls() []Control
}

type Shape int

const (
	shapeUndefined Shape = iota // undefined
	ShapeRGB888                 // rgb888
	ShapeRGBA8888               // rgba8888
)

func (sh Shape) BitsPerPixel() (bits int) {
	switch sh {
	default:
		bits = -1
	case ShapeRGBA8888:
		bits = 32
	case ShapeRGB888:
		bits = 24
	}
	return bits
}

// BytesPerPixel returns the number of bytes a single pixel of the shape occupies.
func (sh Shape) BytesPerPixel() int {
	return (sh.BitsPerPixel() + 7) / 8
}

func (sh Shape) String() string {
	switch sh {
	case ShapeRGB888:
		return "rgb888"
	case ShapeRGBA8888:
		return "rgba8888"
	default:
		return "undefined"
	}
}

type Dims struct {
	Width  int
	Height int
	Stride int
	Shape  Shape
}

func (d Dims) Validate() error {
	pixbits := d.Shape.BitsPerPixel()
	if d.Height <= 0 || d.Width <= 0 {
		return errEmptyImage
	} else if pixbits < 1 {
		return errBadShape
	} else if (d.Width*pixbits+7)/8 > d.Stride {
		return errShortStride
	}
	return nil
}

func (d Dims) NumPixels() int64 {
	return int64(d.Height) * int64(d.Width)
}

// Size returns the readable section size of raw image in bytes.
func (d Dims) Size() int64 {
	if d.Height == 0 || d.Width == 0 {
		return 0
	}
	return int64(d.Height-1)*int64(d.Stride) + int64(d.SizeRow())
}

func (d Dims) SizeRow() int {
	return (d.Width*d.Shape.BitsPerPixel() + 7) / 8
}

// Packed reports whether rows follow each other with no padding.
func (d Dims) Packed() bool {
	return d.Stride == d.SizeRow()
}

// ImageRow returns the bytes of a single row of img. dst is used as
// scratch when img is not buffered in memory.
func ImageRow(dst []byte, img Image, row int) (resultSized []byte, err error) {
	d := img.Dims()
	err = d.Validate()
	if err != nil {
		return nil, err
	}
	rowLenBytes := d.SizeRow()
	if len(dst) < rowLenBytes {
		// Checked before trying ImageBuffered so callers always size dst for the fallback.
		return nil, io.ErrShortBuffer
	} else if row < 0 || row >= d.Height {
		return nil, errRowOutOfBounds
	}
	off := int64(row) * int64(d.Stride)
	if buffered, ok := img.(ImageBuffered); ok {
		buf := buffered.Buffer()
		if buf != nil {
			return buf[off : off+int64(rowLenBytes)], nil
		}
	}
	resultSized = dst[:rowLenBytes]
	n, err := img.ReadAt(resultSized, off)
	if n != rowLenBytes {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return resultSized, nil
}

// ReadPacked returns the whole image as tightly packed rows. When img is an
// in-memory packed buffer its memory is returned directly and must not be written.
func ReadPacked(img Image) ([]byte, Dims, error) {
	d := img.Dims()
	if err := d.Validate(); err != nil {
		return nil, d, err
	}
	if buffered, ok := img.(ImageBuffered); ok && d.Packed() {
		if buf := buffered.Buffer(); buf != nil && int64(len(buf)) >= d.Size() {
			return buf[:d.Size()], d, nil
		}
	}
	rowLen := d.SizeRow()
	out := make([]byte, rowLen*d.Height)
	scratch := make([]byte, rowLen)
	for y := 0; y < d.Height; y++ {
		row, err := ImageRow(scratch, img, y)
		if err != nil {
			return nil, d, err
		}
		copy(out[y*rowLen:], row)
	}
	d.Stride = rowLen
	return out, d, nil
}

// ValidateProcessArgs provides basic guarantees of inputs to Filter such as:
//   - Source [Dims.Validate] early validation. Always returned as called.
//   - Valid ROI argument.
//   - Non-nil destination; operators never work in place.
//   - For users who know the output stride and height offers checking of dst buffer size.
//     Use dstDims.Stride=0 to omit this check.
//
// srcDims is always returned as called by src.Dims.
func ValidateProcessArgs(dst []byte, dstDims Dims, src Image, roi *image.Rectangle) (srcDims Dims, err error) {
	srcDims = src.Dims()
	if err = srcDims.Validate(); err != nil {
		return srcDims, err
	}
	var requiredMinDstSize int64
	if roi != nil {
		if roi.Max.X < 0 || roi.Min.X < 0 || roi.Min.Y < 0 || roi.Max.Y < 0 {
			return srcDims, errNegativeROI
		} else if roi.Max.X > srcDims.Width || roi.Max.Y > srcDims.Height {
			return srcDims, errROIBounds
		} else if roi.Empty() {
			return srcDims, errEmptyROI
		}
		requiredMinDstSize = int64(dstDims.Stride) * int64(roi.Dy())
	} else {
		requiredMinDstSize = int64(dstDims.Stride) * int64(dstDims.Height)
	}
	if dst == nil {
		return srcDims, errNilDst
	}
	if int64(len(dst)) < requiredMinDstSize {
		return srcDims, errShortDst
	}
	return srcDims, nil
}

var (
	errEmptyImage     = errorString("empty image")
	errBadShape       = errorString("bad pixel shape")
	errShortStride    = errorString("stride smaller than pixel row size")
	errRowOutOfBounds = errorString("row out of bounds")
	errNegativeROI    = errorString("negative ROI")
	errROIBounds      = errorString("ROI exceeds image bounds")
	errEmptyROI       = errorString("empty ROI")
	errNilDst         = errorString("nil destination buffer: filters do not operate in place")
	errShortDst       = errorString("destination buffer not large enough to store output")
)
