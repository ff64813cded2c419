// Package session keeps the loaded image, the steps applied to it and the
// current result for the interactive surfaces.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/internal/imageio"
	"github.com/soypat/pixtone/pipeline"
)

// Session is safe for concurrent use. Only the original and the current
// buffers are kept alive; earlier intermediate results are re-derived by
// replaying the step list.
type Session struct {
	mu       sync.Mutex
	log      zerolog.Logger
	runner   *pipeline.Runner
	opts     imageio.Options
	path     string
	original *pixtone.Buffer
	current  *pixtone.Buffer
	steps    []pipeline.Step
}

func New(log zerolog.Logger, runner *pipeline.Runner, opts imageio.Options) *Session {
	if runner == nil {
		runner = pipeline.NewRunner()
	}
	return &Session{
		log:    log.With().Str("component", "session").Logger(),
		runner: runner,
		opts:   opts,
	}
}

// Load decodes path and makes it both the original and the current image.
// On failure the previous image stays loaded.
func (s *Session) Load(path string) error {
	buf, err := imageio.Load(path)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("load failed")
		return err
	}
	s.SetImage(path, buf)
	return nil
}

// SetImage replaces the loaded image with buf and clears the step list.
func (s *Session) SetImage(name string, buf *pixtone.Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path = name
	s.original = buf
	s.current = buf
	s.steps = nil
	s.log.Info().Str("path", name).Int("width", buf.Width()).Int("height", buf.Height()).Msg("image loaded")
}

// Apply runs step over the current image. A failed step leaves the current
// image and the step list unchanged.
func (s *Session) Apply(ctx context.Context, step pipeline.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return pixtone.Errorf(pixtone.ErrLoad, "apply", "no image loaded")
	}
	step = pipeline.Clone([]pipeline.Step{step})[0]
	next, err := s.runner.Run(ctx, s.current, []pipeline.Step{step})
	if err != nil {
		s.log.Warn().Err(err).Str("step", step.String()).Msg("apply failed")
		return err
	}
	s.current = next
	s.steps = append(s.steps, step)
	s.log.Info().Str("step", step.String()).Int("steps", len(s.steps)).Msg("step applied")
	return nil
}

// Reset discards every applied step, restoring the original image.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = s.original
	s.steps = nil
	s.log.Info().Msg("reset to original")
}

// Replay re-derives the current image from the original by running the
// whole step list again. The result equals the incrementally built image.
func (s *Session) Replay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.original == nil {
		return pixtone.Errorf(pixtone.ErrLoad, "replay", "no image loaded")
	}
	if len(s.steps) == 0 {
		s.current = s.original
		return nil
	}
	out, err := s.runner.Run(ctx, s.original, s.steps)
	if err != nil {
		return err
	}
	s.current = out
	return nil
}

// Save encodes the current image to path, format chosen by extension.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur == nil {
		return pixtone.Errorf(pixtone.ErrSave, "save", "no image loaded")
	}
	if err := imageio.Save(path, cur, s.opts); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("save failed")
		return err
	}
	s.log.Info().Str("path", path).Msg("image saved")
	return nil
}

// Current returns the latest result or nil when no image is loaded.
// The buffer must not be modified.
func (s *Session) Current() *pixtone.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Original returns the image as loaded.
func (s *Session) Original() *pixtone.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original
}

// Path returns the name of the loaded image.
func (s *Session) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

// Steps returns a copy of the applied step list.
func (s *Session) Steps() []pipeline.Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pipeline.Clone(s.steps)
}

// Loaded reports whether an image is loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original != nil
}
