package menu

import (
	"bytes"
	"context"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/internal/imageio"
	"github.com/soypat/pixtone/internal/session"
	"github.com/soypat/pixtone/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedSession(t *testing.T) (*session.Session, string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(3))
	pix := make([]byte, 16*12*3)
	rng.Read(pix)
	buf, err := pixtone.NewBufferFromPix(16, 12, pix)
	require.NoError(t, err)
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, imageio.Save(path, buf, imageio.DefaultOptions))
	s := session.New(zerolog.Nop(), nil, imageio.DefaultOptions)
	require.NoError(t, s.Load(path))
	return s, dir
}

func run(t *testing.T, s *session.Session, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := New(s, strings.NewReader(input), &out, 40).Run(context.Background())
	require.NoError(t, err)
	return out.String()
}

func TestMenuAppliesOperators(t *testing.T) {
	s, _ := loadedSession(t)
	out := run(t, s, "1\n2.2\n2\ncontrast\n\n6\n0.5\naverage\nq\n")
	assert.Equal(t, "gamma=2.2,equalize,contrast=1,saturation=0.5:average", pipeline.Format(s.Steps()))
	assert.Contains(t, out, "applied gamma=2.2")
	assert.Contains(t, out, "bye")
}

func TestMenuRepromptsOnInvalidInput(t *testing.T) {
	s, _ := loadedSession(t)
	out := run(t, s, "1\n-1\nabc\n2\nq\n")
	assert.Equal(t, 2, strings.Count(out, "invalid value"))
	assert.Equal(t, "gamma=2", pipeline.Format(s.Steps()))
}

func TestMenuBlankDefaultsToOne(t *testing.T) {
	s, _ := loadedSession(t)
	run(t, s, "3\n\n7\n\nq\n")
	assert.Equal(t, "brightness=1,exposure=1", pipeline.Format(s.Steps()))
}

func TestMenuSaveResetShow(t *testing.T) {
	s, dir := loadedSession(t)
	out := filepath.Join(dir, "result.png")
	text := run(t, s, "3\n0.5\nw\n"+out+"\nr\ns\nq\n")
	assert.Contains(t, text, "saved "+out)
	assert.Contains(t, text, "restored original image")
	assert.Contains(t, text, "▀")
	assert.Empty(t, s.Steps())

	saved, err := imageio.Load(out)
	require.NoError(t, err)
	assert.False(t, saved.Equal(s.Original()), "saved image should be the darkened result")
}

func TestMenuSaveDefaultPath(t *testing.T) {
	s, dir := loadedSession(t)
	run(t, s, "w\n\nq\n")
	_, err := imageio.Load(filepath.Join(dir, "photo_enhanced.png"))
	assert.NoError(t, err)
}

func TestMenuErrorsDoNotExit(t *testing.T) {
	s, dir := loadedSession(t)
	text := run(t, s, "l\n"+filepath.Join(dir, "missing.png")+"\nw\n"+filepath.Join(dir, "x.unknown")+"\nfoo\n2\nq\n")
	assert.Contains(t, text, "load error")
	assert.Contains(t, text, "save error")
	assert.Contains(t, text, `unknown choice "foo"`)
	assert.Equal(t, "equalize", pipeline.Format(s.Steps()))
}

func TestMenuWithoutImage(t *testing.T) {
	s := session.New(zerolog.Nop(), nil, imageio.DefaultOptions)
	text := run(t, s, "1\nq\n")
	assert.Contains(t, text, "no image loaded")
}

func TestMenuEndOfInput(t *testing.T) {
	s, _ := loadedSession(t)
	run(t, s, "1\n")
	assert.Empty(t, s.Steps(), "interrupted prompt must not apply a step")
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "a/photo_enhanced.png", DefaultOutputPath("a/photo.jpg"))
	assert.Equal(t, "enhanced.png", DefaultOutputPath(""))
}
