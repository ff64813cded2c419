// Package pipeline composes tone operators into an ordered list of steps and
// folds them over a source image.
//
// Steps are plain values describing an operator and its parameters. A step
// list is textually represented as comma separated name=value pairs:
//
//	gamma=2.2,equalize,contrast=1.2,exposure=0.5
package pipeline

import (
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/filters"
)

// Step is one stage of a pipeline. Implementations are [*Gamma], [*Equalize],
// [*Enhance] and [*Exposure].
type Step interface {
	// Name is the operator name as used by [Parse].
	Name() string
	// String formats the step as parsed by [Parse].
	String() string
	// Filter builds a fresh operator for the step's parameters.
	Filter() (pixtone.Filter, error)
	// Controls edit the step's parameters in place. Each call reflects
	// the current parameters.
	Controls() []pixtone.Control
	isStep()
}

// Gamma applies gamma correction.
type Gamma struct {
	Gamma float64
}

// Equalize applies luma histogram equalization.
type Equalize struct{}

// Enhance applies one of the linear enhancements.
type Enhance struct {
	Kind   filters.EnhanceKind
	Factor float64
	// Mode is the grayscale reference of Saturation. Ignored by other kinds.
	Mode filters.GrayscaleMode
}

// Exposure applies the logarithmic exposure curve.
type Exposure struct {
	Gain float64
}

func (*Gamma) isStep()    {}
func (*Equalize) isStep() {}
func (*Enhance) isStep()  {}
func (*Exposure) isStep() {}

func (*Gamma) Name() string      { return "gamma" }
func (*Equalize) Name() string   { return "equalize" }
func (s *Enhance) Name() string  { return s.Kind.String() }
func (*Exposure) Name() string   { return "exposure" }
func (s *Gamma) String() string  { return "gamma=" + ftoa(s.Gamma) }
func (*Equalize) String() string { return "equalize" }
func (s *Exposure) String() string {
	return "exposure=" + ftoa(s.Gain)
}

func (s *Enhance) String() string {
	str := s.Kind.String() + "=" + ftoa(s.Factor)
	if s.Kind == filters.Saturation && s.Mode != filters.GrayscaleLuminance {
		str += ":" + strings.ToLower(s.Mode.String())
	}
	return str
}

func (s *Gamma) Filter() (pixtone.Filter, error) { return filters.NewGamma(s.Gamma) }
func (*Equalize) Filter() (pixtone.Filter, error) {
	return filters.NewEqualize(), nil
}
func (s *Exposure) Filter() (pixtone.Filter, error) { return filters.NewExposure(s.Gain) }

func (s *Enhance) Filter() (pixtone.Filter, error) {
	f, err := filters.NewEnhance(s.Kind, s.Factor)
	if err != nil {
		return nil, err
	}
	f.SetMode(s.Mode)
	return f, nil
}

func (s *Gamma) Controls() []pixtone.Control {
	return []pixtone.Control{filters.GammaControl(s.Gamma, func(g float64) error {
		s.Gamma = g
		return nil
	})}
}

func (*Equalize) Controls() []pixtone.Control { return nil }

func (s *Exposure) Controls() []pixtone.Control {
	return []pixtone.Control{filters.ExposureControl(s.Gain, func(g float64) error {
		s.Gain = g
		return nil
	})}
}

func (s *Enhance) Controls() []pixtone.Control {
	ctrls := []pixtone.Control{filters.FactorControl(s.Kind, s.Factor, func(f float64) error {
		s.Factor = f
		return nil
	})}
	if s.Kind == filters.Saturation {
		ctrls = append(ctrls, filters.ModeControl(s.Mode, func(m filters.GrayscaleMode) error {
			s.Mode = m
			return nil
		}))
	}
	return ctrls
}

// Operators lists the step names in dashboard order.
var Operators = []string{"gamma", "equalize", "brightness", "contrast", "sharpness", "saturation", "exposure"}

// NewStep returns the step named name with its default parameters,
// which leave the image unchanged except for exposure and equalize.
func NewStep(name string) (Step, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "gamma":
		return &Gamma{Gamma: 1}, nil
	case "equalize":
		return &Equalize{}, nil
	case "exposure":
		return &Exposure{Gain: 1}, nil
	}
	kind, ok := lo.Find(filters.EnhanceKinds, func(k filters.EnhanceKind) bool {
		return strings.EqualFold(k.String(), strings.TrimSpace(name))
	})
	if !ok {
		return nil, pixtone.Errorf(pixtone.ErrInvalidParameter, "pipeline", "unknown operator %q, want one of %s", name, strings.Join(Operators, ", "))
	}
	return &Enhance{Kind: kind, Factor: 1}, nil
}

// Parse reads a comma separated step list. Each entry is an operator name
// optionally followed by =value. Saturation also accepts a grayscale mode
// after a colon, as in saturation=0.5:average. Values go through the step's
// controls so out of domain parameters fail with [pixtone.ErrInvalidParameter].
func Parse(s string) ([]Step, error) {
	var steps []Step
	for i, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, value, hasValue := strings.Cut(entry, "=")
		step, err := NewStep(name)
		if err != nil {
			return nil, err
		}
		if hasValue {
			if err := setStepText(step, value); err != nil {
				return nil, pixtone.WrapError(pixtone.ErrInvalidParameter, "parse entry "+strconv.Itoa(i), err)
			}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// setStepText assigns textual parameters to the step's controls in order,
// separated by colons. Blank parts restore defaults.
func setStepText(step Step, text string) error {
	ctrls := step.Controls()
	parts := strings.Split(text, ":")
	if len(parts) > len(ctrls) {
		return pixtone.Errorf(pixtone.ErrInvalidParameter, step.Name(), "takes %d parameters, got %d", len(ctrls), len(parts))
	}
	for i, part := range parts {
		tc, ok := ctrls[i].(pixtone.TextControl)
		if !ok {
			return pixtone.Errorf(pixtone.ErrInvalidParameter, step.Name(), "parameter %d not settable from text", i)
		}
		if err := tc.SetText(part); err != nil {
			return err
		}
	}
	return nil
}

// Format is the inverse of [Parse].
func Format(steps []Step) string {
	return strings.Join(lo.Map(steps, func(s Step, _ int) string { return s.String() }), ",")
}

// Names returns the operator name of each step.
func Names(steps []Step) []string {
	return lo.Map(steps, func(s Step, _ int) string { return s.Name() })
}

// Clone deep copies a step list so callers can edit controls without
// affecting steps already applied.
func Clone(steps []Step) []Step {
	return lo.Map(steps, func(s Step, _ int) Step {
		switch s := s.(type) {
		case *Gamma:
			c := *s
			return &c
		case *Equalize:
			return &Equalize{}
		case *Enhance:
			c := *s
			return &c
		case *Exposure:
			c := *s
			return &c
		}
		return s
	})
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
