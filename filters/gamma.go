package filters

import (
	"math"

	"github.com/soypat/pixtone"
)

// GammaLUT returns the lookup table mapping each 8-bit level v to
// 255*(v/255)^(1/gamma), rounded and clipped. gamma must be positive and finite.
func GammaLUT(gamma float64) (*[256]uint8, error) {
	if err := validGamma(gamma); err != nil {
		return nil, err
	}
	inv := 1 / gamma
	var lut [256]uint8
	for i := range lut {
		v := math.Pow(float64(i)/255, inv)
		if math.IsNaN(v) {
			return nil, pixtone.Errorf(pixtone.ErrOperatorFailure, "gamma", "non-finite table entry at %d", i)
		}
		lut[i] = pixtone.Quantize(v)
	}
	return &lut, nil
}

func validGamma(gamma float64) error {
	if math.IsNaN(gamma) || math.IsInf(gamma, 0) || gamma <= 0 {
		return pixtone.Errorf(pixtone.ErrInvalidParameter, "gamma", "gamma must be positive and finite, got %v", gamma)
	}
	return nil
}

// NewGamma creates a gamma correction filter. The table is computed once;
// a gamma of 1 yields the identity table.
func NewGamma(gamma float64) (*PointFilter, error) {
	lut, err := GammaLUT(gamma)
	if err != nil {
		return nil, err
	}
	f := NewLUT(lut)
	f.Ctrls = []pixtone.Control{GammaControl(gamma, func(g float64) error {
		next, err := GammaLUT(g)
		if err == nil {
			*lut = *next
		}
		return err
	})}
	return f, nil
}

// GammaControl describes the gamma parameter. set receives validated values.
func GammaControl(value float64, set func(float64) error) *pixtone.ControlOrdered[float64] {
	return &pixtone.ControlOrdered[float64]{
		Name:        "gamma",
		Description: "Gamma exponent: values above 1 brighten midtones, below 1 darken them",
		Value:       value,
		Default:     1,
		Min:         0,
		Max:         100,
		Step:        0.1,
		OnChange: func(g float64) error {
			if err := validGamma(g); err != nil {
				return err
			}
			return set(g)
		},
	}
}
