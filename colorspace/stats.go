package colorspace

// Stats summarizes how an output raster differs from its source.
type Stats struct {
	MeanLumaBefore float64
	MeanLumaAfter  float64
	// MeanChromaShift is the mean distance between source and output chroma vectors.
	MeanChromaShift float64
	// MaxChromaShift is the largest such distance over all pixels.
	MaxChromaShift float64
}

// Compare computes [Stats] for two packed RGB888 rasters of equal length.
func Compare(before, after []byte) Stats {
	var s Stats
	n := min(len(before), len(after)) / 3
	if n == 0 {
		return s
	}
	for i := 0; i < n; i++ {
		b := before[3*i : 3*i+3]
		a := after[3*i : 3*i+3]
		s.MeanLumaBefore += Luma(b[0], b[1], b[2])
		s.MeanLumaAfter += Luma(a[0], a[1], a[2])
		d := ChromaDistance(Chroma(b[0], b[1], b[2]), Chroma(a[0], a[1], a[2]))
		s.MeanChromaShift += d
		s.MaxChromaShift = max(s.MaxChromaShift, d)
	}
	fn := float64(n)
	s.MeanLumaBefore /= fn
	s.MeanLumaAfter /= fn
	s.MeanChromaShift /= fn
	return s
}
