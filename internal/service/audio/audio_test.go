package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.mp3"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scream.wav"), []byte("x"), 0o644))
	s := New(Config{Dir: dir, Ext: ".mp3"}, nil)

	p, err := s.Resolve("2")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2.mp3"), p)

	p, err = s.Resolve("scream.wav")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scream.wav"), p)

	_, err = s.Resolve("missing")
	assert.ErrorIs(t, err, ErrSoundNotFound)
	_, err = s.Resolve(" ")
	assert.ErrorIs(t, err, ErrSoundNotFound)
}

func TestPlayMissingSound(t *testing.T) {
	s := New(Config{Dir: t.TempDir()}, nil)
	assert.ErrorIs(t, s.Play("nope"), ErrSoundNotFound)
}

func TestVolumeAndMute(t *testing.T) {
	s := New(Config{Volume: 1.7, Muted: true}, nil)
	v, muted := s.Volume()
	assert.Equal(t, 1.0, v)
	assert.True(t, muted)

	s.Unmute()
	s.SetVolume(0.8)
	v, muted = s.Volume()
	assert.Equal(t, 0.8, v)
	assert.False(t, muted)

	// Stop до первого звука не трогает динамик
	s.Stop()
}

func TestGain(t *testing.T) {
	v, silent := gain(1)
	assert.Equal(t, 0.0, v)
	assert.False(t, silent)

	v, _ = gain(0.5)
	assert.Equal(t, -1.0, v)

	_, silent = gain(0)
	assert.True(t, silent)
}

func TestDecodeUnsupported(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "*.ogg")
	require.NoError(t, err)
	_, _, err = decode("ogg", f)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	f.Close()
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error { c.n++; return nil }

func TestStopClosesInterruptedStreams(t *testing.T) {
	s := New(Config{}, nil)
	first, second := &countingCloser{}, &countingCloser{}
	releaseFirst := s.hold(first)
	s.hold(second)

	s.Stop()
	assert.Equal(t, 1, first.n)
	assert.Equal(t, 1, second.n)
	assert.Empty(t, s.live)

	// Callback после Stop не закрывает поток повторно
	releaseFirst()
	assert.Equal(t, 1, first.n)
}

func TestReleaseClosesFinishedStream(t *testing.T) {
	s := New(Config{}, nil)
	c := &countingCloser{}
	s.hold(c)()
	assert.Equal(t, 1, c.n)
	assert.Empty(t, s.live)

	s.Stop()
	assert.Equal(t, 1, c.n)
}
