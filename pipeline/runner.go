package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/filters"
)

// Runner folds a step list over a source image. The zero value is not
// usable; create one with [NewRunner].
type Runner struct {
	log zerolog.Logger
	gpu *filters.GPU
}

// Option configures a [Runner].
type Option func(*Runner)

// WithLogger sets the logger stage timings are written to at debug level.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log.With().Str("component", "pipeline").Logger() }
}

// WithGPU runs gamma and exposure steps on the GPU. Steps fall back to the
// CPU when the GPU dispatch fails.
func WithGPU(gpu *filters.GPU) Option {
	return func(r *Runner) { r.gpu = gpu }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StageError reports the step that aborted a run.
type StageError struct {
	Index int
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Run applies steps to src in order, each stage consuming the previous
// stage's output. src is never modified. On failure the returned error is a
// [*StageError] carrying the error kind of the failing operator and no
// image is returned. An empty step list returns a copy of src.
func (r *Runner) Run(ctx context.Context, src *pixtone.Buffer, steps []Step) (*pixtone.Buffer, error) {
	if src.Empty() {
		return nil, pixtone.Errorf(pixtone.ErrInvalidParameter, "pipeline", "empty source image")
	}
	start := time.Now()
	current := src
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Index: i, Name: step.Name(), Err: pixtone.WrapError(pixtone.ErrOperatorFailure, "pipeline", err)}
		}
		stageStart := time.Now()
		next, err := r.apply(step, current)
		if err != nil {
			r.log.Debug().Int("stage", i).Str("step", step.String()).Err(err).Msg("stage failed")
			return nil, &StageError{Index: i, Name: step.Name(), Err: err}
		}
		r.log.Debug().Int("stage", i).Str("step", step.String()).Dur("took", time.Since(stageStart)).Msg("stage done")
		current = next
	}
	if current == src {
		current = src.Clone()
	}
	r.log.Debug().Int("stages", len(steps)).Dur("took", time.Since(start)).Msg("pipeline done")
	return current, nil
}

func (r *Runner) apply(step Step, src *pixtone.Buffer) (*pixtone.Buffer, error) {
	if r.gpu != nil {
		out, err := r.applyGPU(step, src)
		if out != nil || errors.Is(err, pixtone.ErrInvalidParameter) {
			return out, err
		}
		if err != nil {
			r.log.Warn().Str("step", step.String()).Err(err).Msg("GPU stage failed, falling back to CPU")
		}
	}
	f, err := step.Filter()
	if err != nil {
		return nil, err
	}
	return pixtone.Apply(f, src)
}

// applyGPU returns a nil buffer and nil error for steps with no GPU implementation.
func (r *Runner) applyGPU(step Step, src *pixtone.Buffer) (*pixtone.Buffer, error) {
	var gf interface {
		ProcessBuffer(*pixtone.Buffer) (*pixtone.Buffer, error)
		Cleanup()
	}
	var err error
	switch s := step.(type) {
	case *Gamma:
		gf, err = filters.NewGammaGPU(r.gpu.Device, r.gpu.Queue, s.Gamma)
	case *Exposure:
		gf, err = filters.NewExposureGPU(r.gpu.Device, r.gpu.Queue, s.Gain)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer gf.Cleanup()
	return gf.ProcessBuffer(src)
}
