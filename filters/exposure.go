package filters

import (
	"math"

	"github.com/soypat/pixtone"
)

// ExposureLUT returns the table for the logarithmic exposure curve
// log(1+gain*x)/log(1+gain) over normalized samples. gain == 0 is the limit
// of the curve, the identity. gain must be greater than -1 and finite.
func ExposureLUT(gain float64) (*[256]uint8, error) {
	if err := validGain(gain); err != nil {
		return nil, err
	}
	var lut [256]uint8
	if gain == 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return &lut, nil
	}
	den := math.Log1p(gain)
	for i := range lut {
		x := float64(i) / 255
		v := math.Log1p(gain*x) / den
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, pixtone.Errorf(pixtone.ErrOperatorFailure, "exposure", "non-finite table entry at %d for gain %v", i, gain)
		}
		lut[i] = pixtone.Quantize(v)
	}
	return &lut, nil
}

func validGain(gain float64) error {
	if math.IsNaN(gain) || math.IsInf(gain, 0) || gain <= -1 {
		return pixtone.Errorf(pixtone.ErrInvalidParameter, "exposure", "gain must be finite and greater than -1, got %v", gain)
	}
	return nil
}

// NewExposure creates the logarithmic exposure filter.
func NewExposure(gain float64) (*PointFilter, error) {
	lut, err := ExposureLUT(gain)
	if err != nil {
		return nil, err
	}
	f := NewLUT(lut)
	f.Ctrls = []pixtone.Control{ExposureControl(gain, func(g float64) error {
		next, err := ExposureLUT(g)
		if err == nil {
			*lut = *next
		}
		return err
	})}
	return f, nil
}

// ExposureControl describes the exposure gain. set receives validated values.
func ExposureControl(value float64, set func(float64) error) *pixtone.ControlOrdered[float64] {
	return &pixtone.ControlOrdered[float64]{
		Name:        "exposure",
		Description: "Logarithmic exposure gain: 0 leaves the image unchanged, larger values lift shadows",
		Value:       value,
		Default:     1,
		Min:         -0.99,
		Max:         1000,
		Step:        0.1,
		OnChange: func(g float64) error {
			if err := validGain(g); err != nil {
				return err
			}
			return set(g)
		},
	}
}
