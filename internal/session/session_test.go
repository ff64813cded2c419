package session

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/internal/imageio"
	"github.com/soypat/pixtone/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, dir string) string {
	t.Helper()
	rng := rand.New(rand.NewSource(1))
	pix := make([]byte, 20*10*3)
	rng.Read(pix)
	buf, err := pixtone.NewBufferFromPix(20, 10, pix)
	require.NoError(t, err)
	path := filepath.Join(dir, "in.png")
	require.NoError(t, imageio.Save(path, buf, imageio.DefaultOptions))
	return path
}

func newSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	s := New(zerolog.Nop(), nil, imageio.DefaultOptions)
	require.NoError(t, s.Load(writeImage(t, dir)))
	return s, dir
}

func mustStep(t *testing.T, text string) pipeline.Step {
	t.Helper()
	steps, err := pipeline.Parse(text)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	return steps[0]
}

func TestApplyAndReplay(t *testing.T) {
	ctx := context.Background()
	s, _ := newSession(t)
	orig := s.Original().Clone()
	for _, text := range []string{"gamma=2", "equalize", "saturation=1.5", "exposure=0.5"} {
		require.NoError(t, s.Apply(ctx, mustStep(t, text)))
	}
	assert.Equal(t, "gamma=2,equalize,saturation=1.5,exposure=0.5", pipeline.Format(s.Steps()))
	incremental := s.Current()
	assert.False(t, incremental.Equal(orig))
	assert.True(t, s.Original().Equal(orig), "original must never change")

	require.NoError(t, s.Replay(ctx))
	assert.True(t, s.Current().Equal(incremental), "replay differs from incremental result")
}

func TestFailedApplyKeepsState(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(context.Background(), mustStep(t, "contrast=2")))
	before := s.Current()
	err := s.Apply(context.Background(), &pipeline.Gamma{Gamma: -1})
	assert.ErrorIs(t, err, pixtone.ErrInvalidParameter)
	assert.Same(t, before, s.Current())
	assert.Len(t, s.Steps(), 1)
}

func TestApplyCopiesStep(t *testing.T) {
	s, _ := newSession(t)
	step := &pipeline.Gamma{Gamma: 2}
	require.NoError(t, s.Apply(context.Background(), step))
	step.Gamma = 5
	assert.Equal(t, "gamma=2", pipeline.Format(s.Steps()))
}

func TestReset(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Apply(context.Background(), mustStep(t, "brightness=0")))
	s.Reset()
	assert.True(t, s.Current().Equal(s.Original()))
	assert.Empty(t, s.Steps())
}

func TestSave(t *testing.T) {
	s, dir := newSession(t)
	require.NoError(t, s.Apply(context.Background(), mustStep(t, "gamma=0.5")))
	out := filepath.Join(dir, "out.png")
	require.NoError(t, s.Save(out))
	back, err := imageio.Load(out)
	require.NoError(t, err)
	assert.True(t, back.Equal(s.Current()))

	assert.ErrorIs(t, s.Save(filepath.Join(dir, "out.nope")), pixtone.ErrSave)
}

func TestLoadFailureKeepsImage(t *testing.T) {
	s, dir := newSession(t)
	cur := s.Current()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o600))
	assert.ErrorIs(t, s.Load(bad), pixtone.ErrLoad)
	assert.Same(t, cur, s.Current())
}

func TestEmptySession(t *testing.T) {
	s := New(zerolog.Nop(), nil, imageio.DefaultOptions)
	assert.False(t, s.Loaded())
	assert.ErrorIs(t, s.Apply(context.Background(), &pipeline.Equalize{}), pixtone.ErrLoad)
	assert.ErrorIs(t, s.Save(filepath.Join(t.TempDir(), "x.png")), pixtone.ErrSave)
	assert.ErrorIs(t, s.Replay(context.Background()), pixtone.ErrLoad)
}
