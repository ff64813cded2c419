package filters

import (
	"math/rand"
	"testing"

	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/colorspace"
)

func TestEqualizeUniformUnchanged(t *testing.T) {
	for _, v := range []uint8{0, 1, 77, 128, 254, 255} {
		src := uniformBuffer(6, 4, v, v, v)
		out := mustApply(t, NewEqualize(), src)
		if !out.Equal(src) {
			t.Errorf("uniform gray %d changed by %d levels", v, out.MaxAbsDiff(src))
		}
	}
}

// lowContrast returns a tinted image whose luma spans only a narrow band.
func lowContrast(rng *rand.Rand, width, height int) *pixtone.Buffer {
	pix := make([]byte, width*height*3)
	for i := 0; i < len(pix); i += 3 {
		base := 100 + rng.Intn(40)
		pix[i] = uint8(base + 6)
		pix[i+1] = uint8(base)
		pix[i+2] = uint8(base - 4)
	}
	buf, _ := pixtone.NewBufferFromPix(width, height, pix)
	return buf
}

func sumAbsDiff(a, b *pixtone.Buffer) int {
	total := 0
	for i, v := range a.Buffer() {
		d := int(v) - int(b.Buffer()[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	return total
}

func TestEqualizeStretchesLuma(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	src := lowContrast(rng, 64, 48)
	out := mustApply(t, NewEqualize(), src)
	lo, hi := 255.0, 0.0
	for y := 0; y < out.Height(); y++ {
		for x := 0; x < out.Width(); x++ {
			l := colorspace.Luma(out.At(x, y))
			lo, hi = min(lo, l), max(hi, l)
		}
	}
	if hi-lo < 200 {
		t.Fatalf("luma range after equalization is only %.1f..%.1f", lo, hi)
	}
}

func TestEqualizeNearlyIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	src := lowContrast(rng, 50, 50)
	eq := NewEqualize()
	once := mustApply(t, eq, src)
	twice := mustApply(t, eq, once)
	first, second := sumAbsDiff(once, src), sumAbsDiff(twice, once)
	if second > first {
		t.Fatalf("second pass moved %d levels, more than the first pass %d", second, first)
	}
}

func TestEqualizePreservesChroma(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	src := lowContrast(rng, 40, 40)
	out := mustApply(t, NewEqualize(), src)
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			r, g, b := out.At(x, y)
			if max(r, g, b) == 255 || min(r, g, b) == 0 {
				continue // Clipped channels lose chroma.
			}
			d := colorspace.ChromaDistance(colorspace.Chroma(src.At(x, y)), colorspace.Chroma(r, g, b))
			if d > 1.5 {
				t.Fatalf("pixel (%d,%d) chroma moved by %.2f", x, y, d)
			}
		}
	}
}

func TestEqualizeLUT(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		lut := EqualizeLUT([256]int{})
		for i, v := range lut {
			if int(v) != i {
				t.Fatalf("empty histogram must be identity, lut[%d]=%d", i, v)
			}
		}
	})
	t.Run("single bin", func(t *testing.T) {
		var hist [256]int
		hist[42] = 100
		lut := EqualizeLUT(hist)
		if lut[42] != 42 {
			t.Fatalf("single bin remapped to %d", lut[42])
		}
	})
	t.Run("two bins", func(t *testing.T) {
		var hist [256]int
		hist[100], hist[120] = 10, 30
		lut := EqualizeLUT(hist)
		if lut[100] != 0 || lut[120] != 255 {
			t.Fatalf("extremes map to %d and %d, want 0 and 255", lut[100], lut[120])
		}
	})
	t.Run("monotonic", func(t *testing.T) {
		rng := rand.New(rand.NewSource(23))
		var hist [256]int
		for i := range hist {
			hist[i] = rng.Intn(50)
		}
		lut := EqualizeLUT(hist)
		for i := 1; i < 256; i++ {
			if lut[i] < lut[i-1] {
				t.Fatalf("table decreases at %d", i)
			}
		}
		if lut[255] != 255 {
			t.Fatalf("top level maps to %d", lut[255])
		}
	})
}
