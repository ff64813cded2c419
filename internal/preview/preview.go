// Package preview renders buffers to a truecolor terminal.
package preview

import (
	"bufio"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/colorspace"
)

// Render draws buf on w using upper half block characters, two image rows
// per text line. The image is downscaled to at most width cells keeping its
// aspect ratio. Images narrower than width are drawn at native size.
func Render(w io.Writer, buf *pixtone.Buffer, width int) error {
	if buf.Empty() {
		_, err := io.WriteString(w, "(no image)\n")
		return err
	}
	if width < 1 {
		width = 1
	}
	img := buf.NRGBA()
	if buf.Width() > width {
		// Terminal cells are about twice as tall as wide, half blocks make them square.
		img = imaging.Fit(img, width, buf.Height()*width/buf.Width()+1, imaging.Box)
	}
	small := pixtone.FromImage(img)
	bw := bufio.NewWriter(w)
	for y := 0; y < small.Height(); y += 2 {
		for x := 0; x < small.Width(); x++ {
			r, g, b := small.At(x, y)
			fmt.Fprintf(bw, "\x1b[38;2;%d;%d;%dm", r, g, b)
			if y+1 < small.Height() {
				r, g, b = small.At(x, y+1)
				fmt.Fprintf(bw, "\x1b[48;2;%d;%d;%dm", r, g, b)
			}
			bw.WriteString("▀")
		}
		bw.WriteString("\x1b[0m\n")
	}
	return bw.Flush()
}

// Summary prints the size of the current image and how far the latest
// result moved from the original in luma and chroma.
func Summary(w io.Writer, original, current *pixtone.Buffer) error {
	if original.Empty() || current.Empty() {
		_, err := io.WriteString(w, "no image loaded\n")
		return err
	}
	s := colorspace.Compare(original.Buffer(), current.Buffer())
	_, err := fmt.Fprintf(w, "%dx%d  mean luma %.1f -> %.1f  chroma shift mean %.2f max %.2f\n",
		current.Width(), current.Height(), s.MeanLumaBefore, s.MeanLumaAfter, s.MeanChromaShift, s.MaxChromaShift)
	return err
}
