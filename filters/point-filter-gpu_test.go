package filters

import (
	"errors"
	"image"
	"image/png"
	"math/rand"
	"os"
	"testing"

	"github.com/soypat/pixtone"
)

// GenerateRandomSquaresRGBA creates an RGBA image with random colored squares on a black background.
func GenerateRandomSquaresRGBA(rng *rand.Rand, width, height, numSquares, minSize, maxSize int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Fill with black (alpha=255)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	for i := 0; i < numSquares; i++ {
		size := minSize + rng.Intn(maxSize-minSize+1)
		x := rng.Intn(width)
		y := rng.Intn(height)

		// Random color (avoid very dark so squares are visible)
		r := uint8(64 + rng.Intn(192))
		g := uint8(64 + rng.Intn(192))
		b := uint8(64 + rng.Intn(192))

		fillRectRGBA(img, x, y, size, size, r, g, b, 255)
	}

	return img
}

func fillRectRGBA(img *image.RGBA, x, y, w, h int, r, g, b, a uint8) {
	bounds := img.Bounds()
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				idx := py*img.Stride + px*4
				img.Pix[idx] = r
				img.Pix[idx+1] = g
				img.Pix[idx+2] = b
				img.Pix[idx+3] = a
			}
		}
	}
}

func saveRGBAAsPNG(img *image.RGBA, path string) error {
	if err := os.MkdirAll("testdata", 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

// initGPU initializes WebGPU device and queue for testing.
func initGPU(t *testing.T) *GPU {
	t.Helper()
	gpu, err := OpenGPU()
	if errors.Is(err, ErrNoGPU) {
		t.Skipf("WebGPU not available: %v", err)
	} else if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(gpu.Release)
	return gpu
}

func TestGammaGPUMatchesLUT(t *testing.T) {
	gpu := initGPU(t)

	rng := rand.New(rand.NewSource(42))
	const width, height = 256, 256
	srcImg := GenerateRandomSquaresRGBA(rng, width, height, 20, 10, 50)
	src := pixtone.FromImage(srcImg)

	filter, err := NewGammaGPU(gpu.Device, gpu.Queue, 2.2)
	if err != nil {
		t.Fatalf("NewGammaGPU: %v", err)
	}
	defer filter.Cleanup()

	got, err := filter.ProcessBuffer(src)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := saveRGBAAsPNG(got.RGBA(), "testdata/gamma_gpu_output.png"); err != nil {
		t.Logf("failed to save output: %v", err)
	}

	cpu, err := NewGamma(2.2)
	if err != nil {
		t.Fatal(err)
	}
	want, err := pixtone.Apply(cpu, src)
	if err != nil {
		t.Fatal(err)
	}
	// The shader evaluates pow in float32 so allow a single level of difference.
	if d := got.MaxAbsDiff(want); d > 1 {
		t.Errorf("GPU gamma differs from LUT by %d levels", d)
	}
}

func TestExposureGPUMatchesLUT(t *testing.T) {
	gpu := initGPU(t)

	rng := rand.New(rand.NewSource(777))
	const width, height = 128, 128
	src := pixtone.FromImage(GenerateRandomSquaresRGBA(rng, width, height, 15, 10, 30))

	for _, gain := range []float64{0, 0.5, 1, 4} {
		filter, err := NewExposureGPU(gpu.Device, gpu.Queue, gain)
		if err != nil {
			t.Fatalf("NewExposureGPU(%v): %v", gain, err)
		}
		got, err := filter.ProcessBuffer(src)
		filter.Cleanup()
		if err != nil {
			t.Fatalf("Process(%v): %v", gain, err)
		}
		cpu, err := NewExposure(gain)
		if err != nil {
			t.Fatal(err)
		}
		want, err := pixtone.Apply(cpu, src)
		if err != nil {
			t.Fatal(err)
		}
		if d := got.MaxAbsDiff(want); d > 1 {
			t.Errorf("gain %v: GPU exposure differs from LUT by %d levels", gain, d)
		}
	}
}

func TestGPUFilterDoesNotAliasOutput(t *testing.T) {
	gpu := initGPU(t)

	rng := rand.New(rand.NewSource(999))
	src := pixtone.FromImage(GenerateRandomSquaresRGBA(rng, 64, 64, 10, 8, 20))

	filter, err := NewGammaGPU(gpu.Device, gpu.Queue, 0.5)
	if err != nil {
		t.Fatalf("NewGammaGPU: %v", err)
	}
	defer filter.Cleanup()

	first, err := filter.ProcessBuffer(src)
	if err != nil {
		t.Fatalf("first process: %v", err)
	}
	snapshot := first.Clone()
	if _, err := filter.ProcessBuffer(first); err != nil {
		t.Fatalf("second process: %v", err)
	}
	if !first.Equal(snapshot) {
		t.Fatal("first result changed by second call")
	}
}

func TestGPUFilterAfterCleanup(t *testing.T) {
	gpu := initGPU(t)
	filter, err := NewExposureGPU(gpu.Device, gpu.Queue, 2)
	if err != nil {
		t.Fatalf("NewExposureGPU: %v", err)
	}
	filter.Cleanup()
	_, err = filter.ProcessBuffer(pixtone.NewBuffer(4, 4))
	if !errors.Is(err, pixtone.ErrOperatorFailure) {
		t.Fatalf("want ErrOperatorFailure, got %v", err)
	}
}

func TestPackRGBX(t *testing.T) {
	buf, err := pixtone.NewBufferFromPix(2, 1, []byte{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatal(err)
	}
	packed := packRGBX(buf)
	want := []byte{1, 2, 3, 255, 4, 5, 6, 255}
	if string(packed) != string(want) {
		t.Fatalf("packRGBX = %v, want %v", packed, want)
	}
	back, err := unpackRGBX(packed, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(buf) {
		t.Fatal("unpackRGBX does not invert packRGBX")
	}
}

func TestNewGammaGPURejectsInvalidGamma(t *testing.T) {
	// Parameter validation runs before any GPU resource is touched.
	_, err := NewGammaGPU(nil, nil, 0)
	if !errors.Is(err, pixtone.ErrInvalidParameter) {
		t.Fatalf("want ErrInvalidParameter, got %v", err)
	}
	_, err = NewExposureGPU(nil, nil, -1)
	if !errors.Is(err, pixtone.ErrInvalidParameter) {
		t.Fatalf("want ErrInvalidParameter, got %v", err)
	}
}
