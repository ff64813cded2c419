package filters

import "github.com/soypat/pixtone"

// GrayscaleMode determines the algorithm for RGB to grayscale conversion.
type GrayscaleMode int

const (
	// GrayscaleLuminance uses standard luminance weights: 0.299*R + 0.587*G + 0.114*B
	GrayscaleLuminance GrayscaleMode = iota
	// GrayscaleAverage uses simple average: (R + G + B) / 3
	GrayscaleAverage
	// GrayscaleLightness uses min/max average: (max(R,G,B) + min(R,G,B)) / 2
	GrayscaleLightness
)

func (m GrayscaleMode) String() string {
	switch m {
	case GrayscaleLuminance:
		return "Luminance"
	case GrayscaleAverage:
		return "Average"
	case GrayscaleLightness:
		return "Lightness"
	default:
		return "Unknown"
	}
}

// GrayscaleModes lists every supported mode.
var GrayscaleModes = []GrayscaleMode{GrayscaleLuminance, GrayscaleAverage, GrayscaleLightness}

// Gray returns the gray level of a single RGB sample.
func (m GrayscaleMode) Gray(r, g, b uint8) uint8 {
	switch m {
	case GrayscaleAverage:
		return uint8((uint32(r) + uint32(g) + uint32(b)) / 3)
	case GrayscaleLightness:
		return uint8((uint32(min(r, g, b)) + uint32(max(r, g, b))) / 2)
	default: // GrayscaleLuminance
		// Rounded ITU-R 601 weights in 16.16 fixed point.
		return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
	}
}

// NewGrayscale creates a filter producing the fully desaturated copy of an image.
func NewGrayscale(mode GrayscaleMode) *PointFilter {
	filterMode := mode
	return &PointFilter{
		In:  pixtone.ShapeRGB888,
		Out: pixtone.ShapeRGB888,
		Fn: func(dst, src []byte) {
			for i := 0; i < len(src); i += 3 {
				gray := filterMode.Gray(src[i], src[i+1], src[i+2])
				dst[i], dst[i+1], dst[i+2] = gray, gray, gray
			}
		},
		Ctrls: []pixtone.Control{
			&pixtone.ControlEnum[GrayscaleMode]{
				Name:        "Conversion Mode",
				Description: "Algorithm for RGB to grayscale conversion",
				Value:       filterMode,
				ValidValues: GrayscaleModes,
				OnChange: func(m GrayscaleMode) error {
					filterMode = m // Closure will assign and Fn above pick up.
					return nil
				},
			},
		},
	}
}
