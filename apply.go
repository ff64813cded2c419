package pixtone

// Apply runs f over src and returns the result in a newly allocated Buffer.
// src is never modified, so callers may keep it around for comparison
// or to retry with different parameters.
func Apply(f Filter, src Image) (*Buffer, error) {
	out, _ := f.ShapeIO()
	if out != ShapeRGB888 {
		return nil, Errorf(ErrOperatorFailure, "apply", "filter output shape %s is not %s", out, ShapeRGB888)
	}
	sd := src.Dims()
	if err := sd.Validate(); err != nil {
		return nil, WrapError(ErrOperatorFailure, "apply", err)
	}
	dst := make([]byte, sd.Width*sd.Height*3)
	dims, err := f.Process(dst, src, nil)
	if err != nil {
		return nil, WrapError(ErrOperatorFailure, "apply", err)
	}
	if dims.Width != sd.Width || dims.Height != sd.Height || !dims.Packed() {
		return nil, Errorf(ErrOperatorFailure, "apply", "filter returned unexpected dims %+v", dims)
	}
	return &Buffer{width: dims.Width, height: dims.Height, pix: dst}, nil
}
