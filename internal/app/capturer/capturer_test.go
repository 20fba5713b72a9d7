package capturer

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrabDownscalesWideFrames(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{Enabled: true, Dir: filepath.Join(dir, "frames")}, nil)
	c.capture = func() (*image.RGBA, error) {
		img := image.NewRGBA(image.Rect(0, 0, 2560, 720))
		img.Set(10, 10, color.RGBA{R: 255, A: 255})
		return img, nil
	}

	path, err := c.Grab()
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 1280, cfg.Width)
	assert.Equal(t, 360, cfg.Height)
}

func TestGrabDisabled(t *testing.T) {
	_, err := New(Config{}, nil).Grab()
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestCleanerSweepKeepsNewestFrame(t *testing.T) {
	dir := t.TempDir()
	oldest := filepath.Join(dir, "2025-10-23_12-00-00.000.jpg")
	older := filepath.Join(dir, "2025-10-23_12-00-01.000.jpg")
	newest := filepath.Join(dir, "2025-10-23_12-00-02.000.jpg")
	other := filepath.Join(dir, "keep.gif")
	past := time.Now().Add(-time.Hour)
	for _, p := range []string{oldest, older, newest, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, past, past))
	}

	assert.Equal(t, 0, NewCleaner(dir, time.Minute, true, nil).Sweep(time.Now()))

	c := NewCleaner(dir, time.Minute, false, nil)
	assert.Equal(t, 2, c.Sweep(time.Now()))
	assert.NoFileExists(t, oldest)
	assert.NoFileExists(t, older)
	assert.FileExists(t, newest)
	assert.FileExists(t, other)

	assert.Equal(t, 0, NewCleaner(filepath.Join(dir, "missing"), time.Minute, false, nil).Sweep(time.Now()))
}

func TestCleanerSweepRespectsTTL(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	c := NewCleaner(dir, time.Minute, false, nil)
	assert.Equal(t, 0, c.Sweep(time.Now()))
	assert.Equal(t, 1, c.Sweep(time.Now().Add(2*time.Minute)))
	assert.FileExists(t, filepath.Join(dir, "b.jpg"))
}

func TestResizeNearest(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	dst := resizeNearest(src, 2, 1)
	assert.Equal(t, image.Rect(0, 0, 2, 1), dst.Bounds())
	assert.Equal(t, image.Rect(0, 0, 1, 1), resizeNearest(src, 0, 0).Bounds())
}
