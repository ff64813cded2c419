package filters

import (
	"image"
	"math"

	"github.com/disintegration/gift"
	"github.com/soypat/pixtone"
)

// EnhanceKind selects how the reference image of an [Enhance] filter is built.
type EnhanceKind int

const (
	// Brightness interpolates from a black image.
	Brightness EnhanceKind = iota
	// Contrast interpolates from a flat image of the mean luminance.
	Contrast
	// Sharpness interpolates from a smoothed copy.
	Sharpness
	// Saturation interpolates from the grayscale copy.
	Saturation
)

// EnhanceKinds lists every enhancement variant.
var EnhanceKinds = []EnhanceKind{Brightness, Contrast, Sharpness, Saturation}

func (k EnhanceKind) String() string {
	switch k {
	case Brightness:
		return "brightness"
	case Contrast:
		return "contrast"
	case Sharpness:
		return "sharpness"
	case Saturation:
		return "saturation"
	default:
		return "unknown"
	}
}

// smoothKernel matches the classic 3x3 "smooth" filter, normalized by gift.
var smoothKernel = []float32{
	1, 1, 1,
	1, 5, 1,
	1, 1, 1,
}

// Enhance computes out = ref + factor*(src - ref) per sample, rounded and clipped.
// A factor of 1 returns the source, 0 returns the reference and values above
// 1 extrapolate away from it.
type Enhance struct {
	kind   EnhanceKind
	factor float64
	// mode picks the desaturation algorithm for Saturation and the luminance
	// estimate for Contrast.
	mode GrayscaleMode

	ctrls    []pixtone.Control
	modeCtrl *pixtone.ControlEnum[GrayscaleMode]
}

// NewEnhance creates a linear enhancement filter. factor must be finite and non-negative.
func NewEnhance(kind EnhanceKind, factor float64) (*Enhance, error) {
	if kind < Brightness || kind > Saturation {
		return nil, pixtone.Errorf(pixtone.ErrInvalidParameter, "enhance", "unknown enhancement kind %d", kind)
	}
	if err := validFactor(kind, factor); err != nil {
		return nil, err
	}
	return &Enhance{kind: kind, factor: factor, mode: GrayscaleLuminance}, nil
}

func validFactor(kind EnhanceKind, factor float64) error {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return pixtone.Errorf(pixtone.ErrInvalidParameter, kind.String(), "factor must be finite and non-negative, got %v", factor)
	}
	return nil
}

// SetMode changes the grayscale algorithm used to build the reference.
func (e *Enhance) SetMode(mode GrayscaleMode) {
	e.mode = mode
	if e.modeCtrl != nil {
		e.modeCtrl.Value = mode
	}
}

func (e *Enhance) Kind() EnhanceKind { return e.kind }
func (e *Enhance) Factor() float64   { return e.factor }

// ShapeIO implements [pixtone.Filter].
func (*Enhance) ShapeIO() (output, input pixtone.Shape) {
	return pixtone.ShapeRGB888, pixtone.ShapeRGB888
}

// Controls implements [pixtone.Filter].
// The controls are built on first use and shared by later calls.
func (e *Enhance) Controls() []pixtone.Control {
	if e.ctrls != nil {
		return e.ctrls
	}
	e.ctrls = []pixtone.Control{FactorControl(e.kind, e.factor, func(f float64) error {
		e.factor = f
		return nil
	})}
	if e.kind == Saturation {
		e.modeCtrl = ModeControl(e.mode, func(m GrayscaleMode) error {
			e.mode = m
			return nil
		})
		e.ctrls = append(e.ctrls, e.modeCtrl)
	}
	return e.ctrls
}

// FactorControl describes the factor of an enhancement. set receives validated values.
func FactorControl(kind EnhanceKind, value float64, set func(float64) error) *pixtone.ControlOrdered[float64] {
	return &pixtone.ControlOrdered[float64]{
		Name:        kind.String(),
		Description: "Enhancement factor: 0 gives the reference image, 1 the original",
		Value:       value,
		Default:     1,
		Min:         0,
		Max:         100,
		Step:        0.1,
		OnChange: func(f float64) error {
			if err := validFactor(kind, f); err != nil {
				return err
			}
			return set(f)
		},
	}
}

// ModeControl selects the grayscale algorithm of the saturation reference.
func ModeControl(value GrayscaleMode, set func(GrayscaleMode) error) *pixtone.ControlEnum[GrayscaleMode] {
	return &pixtone.ControlEnum[GrayscaleMode]{
		Name:        "mode",
		Description: "Algorithm used to build the grayscale reference",
		Value:       value,
		ValidValues: GrayscaleModes,
		OnChange:    set,
	}
}

// Process implements [pixtone.Filter].
func (e *Enhance) Process(dst []byte, src pixtone.Image, roi *image.Rectangle) (pixtone.Dims, error) {
	pix, d, err := wholeImage(dst, src, roi)
	if err != nil {
		return pixtone.Dims{}, err
	}
	n := d.Width * d.Height * 3
	if e.factor == 1 {
		copy(dst[:n], pix)
		return d, nil
	}
	switch e.kind {
	case Brightness:
		// The reference is all zeros so interpolation reduces to scaling.
		for i, v := range pix[:n] {
			dst[i] = pixtone.Clip8(e.factor * float64(v))
		}
	case Contrast:
		mean := float64(e.meanGray(pix[:n]))
		for i, v := range pix[:n] {
			dst[i] = pixtone.Clip8(mean + e.factor*(float64(v)-mean))
		}
	case Saturation:
		for i := 0; i < n; i += 3 {
			gray := float64(e.mode.Gray(pix[i], pix[i+1], pix[i+2]))
			for c := 0; c < 3; c++ {
				dst[i+c] = pixtone.Clip8(gray + e.factor*(float64(pix[i+c])-gray))
			}
		}
	case Sharpness:
		ref, err := smoothed(pix, d.Width, d.Height)
		if err != nil {
			return pixtone.Dims{}, err
		}
		for y := 0; y < d.Height; y++ {
			refRow := ref.Pix[y*ref.Stride : y*ref.Stride+d.Width*4]
			for x := 0; x < d.Width; x++ {
				i := (y*d.Width + x) * 3
				for c := 0; c < 3; c++ {
					r := float64(refRow[4*x+c])
					dst[i+c] = pixtone.Clip8(r + e.factor*(float64(pix[i+c])-r))
				}
			}
		}
	}
	return d, nil
}

// meanGray returns the rounded mean gray level of the image.
func (e *Enhance) meanGray(pix []byte) uint8 {
	var sum uint64
	count := uint64(len(pix) / 3)
	for i := 0; i+2 < len(pix); i += 3 {
		sum += uint64(e.mode.Gray(pix[i], pix[i+1], pix[i+2]))
	}
	return uint8((sum + count/2) / count)
}

// smoothed returns the blurred reference used by sharpness. gift clamps
// samples at the image edges.
func smoothed(pix []byte, width, height int) (*image.NRGBA, error) {
	src := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(pix); i, j = i+3, j+4 {
		src.Pix[j], src.Pix[j+1], src.Pix[j+2], src.Pix[j+3] = pix[i], pix[i+1], pix[i+2], 255
	}
	g := gift.New(gift.Convolution(smoothKernel, true, false, false, 0))
	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	if dst.Bounds().Dx() != width || dst.Bounds().Dy() != height {
		return nil, pixtone.Errorf(pixtone.ErrOperatorFailure, "sharpness", "smoothing changed bounds to %v", dst.Bounds())
	}
	return dst, nil
}
