// Package imageio decodes image files into [pixtone.Buffer] and encodes them back.
//
// Decoding accepts JPEG, PNG, GIF, BMP, TIFF and WebP and applies EXIF
// orientation. Encoding supports every format but WebP.
package imageio

import (
	"bytes"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/soypat/pixtone"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Options control encoding.
type Options struct {
	// JPEGQuality in 1..100. Zero selects 95.
	JPEGQuality int
	// PNGCompression is one of default, none, speed or best.
	PNGCompression string
}

// DefaultOptions mirror the configuration defaults.
var DefaultOptions = Options{JPEGQuality: 95, PNGCompression: "default"}

// Load decodes the image file at path. Failures are [pixtone.ErrLoad].
func Load(path string) (*pixtone.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pixtone.WrapError(pixtone.ErrLoad, "load", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads an encoded image from r into an RGB888 buffer. Alpha is dropped.
func Decode(r io.Reader) (*pixtone.Buffer, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, pixtone.WrapError(pixtone.ErrLoad, "decode", err)
	}
	buf := pixtone.FromImage(img)
	if buf.Empty() {
		return nil, pixtone.Errorf(pixtone.ErrLoad, "decode", "image has no pixels")
	}
	return buf, nil
}

// Format returns the encoder for a file extension or format name such as
// "png", ".JPG" or "out.tiff".
func Format(name string) (imaging.Format, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = "." + strings.ToLower(name)
	}
	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return f, pixtone.Errorf(pixtone.ErrSave, "format", "unsupported output format %q: %w", name, err)
	}
	return f, nil
}

// ContentType returns the MIME type of an encoder format.
func ContentType(f imaging.Format) string {
	switch f {
	case imaging.JPEG:
		return "image/jpeg"
	case imaging.PNG:
		return "image/png"
	case imaging.GIF:
		return "image/gif"
	case imaging.TIFF:
		return "image/tiff"
	case imaging.BMP:
		return "image/bmp"
	}
	return "application/octet-stream"
}

// Encode writes buf to w in the given format. Failures are [pixtone.ErrSave].
func Encode(w io.Writer, buf *pixtone.Buffer, format imaging.Format, opts Options) error {
	if buf.Empty() {
		return pixtone.Errorf(pixtone.ErrSave, "encode", "empty image")
	}
	encOpts, err := opts.encodeOptions()
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, buf.NRGBA(), format, encOpts...); err != nil {
		return pixtone.WrapError(pixtone.ErrSave, "encode", err)
	}
	return nil
}

// EncodeBytes returns buf encoded in the named format.
func EncodeBytes(buf *pixtone.Buffer, format string, opts Options) ([]byte, imaging.Format, error) {
	f, err := Format(format)
	if err != nil {
		return nil, f, err
	}
	var b bytes.Buffer
	if err := Encode(&b, buf, f, opts); err != nil {
		return nil, f, err
	}
	return b.Bytes(), f, nil
}

// savePerm is the mode of saved images.
const savePerm = 0o644

// Save encodes buf to path choosing the format from its extension. The file
// is written to a temporary sibling first so a failed save leaves any
// existing file intact.
func Save(path string, buf *pixtone.Buffer, opts Options) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return pixtone.WrapError(pixtone.ErrSave, "save", err)
	}
	defer os.Remove(tmp.Name())
	if err := Encode(tmp, buf, format, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return pixtone.WrapError(pixtone.ErrSave, "save", err)
	}
	if err := os.Chmod(tmp.Name(), savePerm); err != nil {
		return pixtone.WrapError(pixtone.ErrSave, "save", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return pixtone.WrapError(pixtone.ErrSave, "save", err)
	}
	return nil
}

func (o Options) encodeOptions() ([]imaging.EncodeOption, error) {
	quality := o.JPEGQuality
	if quality == 0 {
		quality = DefaultOptions.JPEGQuality
	}
	if quality < 1 || quality > 100 {
		return nil, pixtone.Errorf(pixtone.ErrSave, "encode", "jpeg quality %d not in 1..100", quality)
	}
	var level png.CompressionLevel
	switch strings.ToLower(o.PNGCompression) {
	case "", "default":
		level = png.DefaultCompression
	case "none":
		level = png.NoCompression
	case "speed":
		level = png.BestSpeed
	case "best":
		level = png.BestCompression
	default:
		return nil, pixtone.Errorf(pixtone.ErrSave, "encode", "unknown png compression %q", o.PNGCompression)
	}
	return []imaging.EncodeOption{imaging.JPEGQuality(quality), imaging.PNGCompressionLevel(level)}, nil
}
