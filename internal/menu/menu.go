// Package menu implements the numbered text menu driving a session.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/internal/preview"
	"github.com/soypat/pixtone/internal/session"
	"github.com/soypat/pixtone/pipeline"
)

// Menu reads commands from in and writes prompts and results to out.
type Menu struct {
	s            *session.Session
	in           *bufio.Scanner
	out          io.Writer
	previewWidth int
}

func New(s *session.Session, in io.Reader, out io.Writer, previewWidth int) *Menu {
	return &Menu{s: s, in: bufio.NewScanner(in), out: out, previewWidth: previewWidth}
}

type action struct {
	key  string
	name string
	run  func(ctx context.Context) error
}

var errExit = errors.New("exit")

func (m *Menu) actions() []action {
	acts := lo.Map(pipeline.Operators, func(op string, i int) action {
		return action{key: strconv.Itoa(i + 1), name: op, run: func(ctx context.Context) error {
			return m.applyOperator(ctx, op)
		}}
	})
	return append(acts,
		action{key: "s", name: "show", run: func(context.Context) error { return m.show() }},
		action{key: "w", name: "save", run: func(context.Context) error { return m.save() }},
		action{key: "r", name: "reset", run: func(context.Context) error { m.reset(); return nil }},
		action{key: "l", name: "load", run: func(context.Context) error { return m.load() }},
		action{key: "q", name: "exit", run: func(context.Context) error { return errExit }},
	)
}

// Run loops until exit is chosen, input ends or ctx is done. Load and save
// failures are printed and the loop continues.
func (m *Menu) Run(ctx context.Context) error {
	acts := m.actions()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.printMenu(acts)
		line, ok := m.readLine("> ")
		if !ok {
			return m.in.Err()
		}
		line = strings.ToLower(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		act, found := lo.Find(acts, func(a action) bool { return a.key == line || a.name == line })
		if !found {
			fmt.Fprintf(m.out, "unknown choice %q\n", line)
			continue
		}
		err := act.run(ctx)
		switch {
		case errors.Is(err, errExit):
			fmt.Fprintln(m.out, "bye")
			return nil
		case errors.Is(err, io.EOF):
			return m.in.Err()
		case err != nil:
			fmt.Fprintf(m.out, "error: %v\n", err)
		}
	}
}

func (m *Menu) printMenu(acts []action) {
	title := "no image loaded"
	if m.s.Loaded() {
		title = m.s.Path()
		if steps := m.s.Steps(); len(steps) > 0 {
			title += " [" + pipeline.Format(steps) + "]"
		}
	}
	fmt.Fprintf(m.out, "\npixtone: %s\n", title)
	for _, a := range acts {
		fmt.Fprintf(m.out, " %s) %s\n", a.key, a.name)
	}
}

// readLine prints prompt and returns the next input line. ok is false at end of input.
func (m *Menu) readLine(prompt string) (line string, ok bool) {
	fmt.Fprint(m.out, prompt)
	if !m.in.Scan() {
		fmt.Fprintln(m.out)
		return "", false
	}
	return m.in.Text(), true
}

func (m *Menu) applyOperator(ctx context.Context, name string) error {
	if !m.s.Loaded() {
		return pixtone.Errorf(pixtone.ErrLoad, name, "no image loaded, use load first")
	}
	step, err := pipeline.NewStep(name)
	if err != nil {
		return err
	}
	for _, ctrl := range step.Controls() {
		if err := m.prompt(ctrl); err != nil {
			return err
		}
	}
	if err := m.s.Apply(ctx, step); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "applied %s\n", step)
	return nil
}

// prompt asks for a control value until it is accepted. Blank input keeps the default.
func (m *Menu) prompt(ctrl pixtone.Control) error {
	tc, ok := ctrl.(pixtone.TextControl)
	if !ok {
		return nil
	}
	name, desc := ctrl.Describe()
	hint := fmt.Sprint(ctrl.ActualValue())
	if enum, ok := ctrl.(interface{ Options() []string }); ok {
		hint = strings.Join(enum.Options(), "/") + ", blank " + enum.Options()[0]
	}
	for {
		line, ok := m.readLine(fmt.Sprintf("%s (%s) [%s]: ", name, desc, hint))
		if !ok {
			return io.EOF
		}
		err := tc.SetText(line)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pixtone.ErrInvalidParameter) {
			return err
		}
		fmt.Fprintf(m.out, "invalid value: %v\n", err)
	}
}

func (m *Menu) show() error {
	if err := preview.Render(m.out, m.s.Current(), m.previewWidth); err != nil {
		return err
	}
	return preview.Summary(m.out, m.s.Original(), m.s.Current())
}

func (m *Menu) save() error {
	if !m.s.Loaded() {
		return pixtone.Errorf(pixtone.ErrSave, "save", "no image loaded")
	}
	def := DefaultOutputPath(m.s.Path())
	line, ok := m.readLine(fmt.Sprintf("output path [%s]: ", def))
	if !ok {
		return io.EOF
	}
	path := strings.TrimSpace(line)
	if path == "" {
		path = def
	}
	if err := m.s.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "saved %s\n", path)
	return nil
}

func (m *Menu) reset() {
	m.s.Reset()
	fmt.Fprintln(m.out, "restored original image")
}

func (m *Menu) load() error {
	line, ok := m.readLine("image path: ")
	if !ok {
		return io.EOF
	}
	path := strings.TrimSpace(line)
	if path == "" {
		return pixtone.Errorf(pixtone.ErrLoad, "load", "no path given")
	}
	if err := m.s.Load(path); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "loaded %s\n", path)
	return nil
}

// DefaultOutputPath derives the save target for an input image,
// photo.jpg becoming photo_enhanced.png.
func DefaultOutputPath(input string) string {
	if input == "" {
		return "enhanced.png"
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + "_enhanced.png"
}
