// ABOUTME: Tests for the selectable track list
// ABOUTME: Uses an in-memory loader so no files are decoded
package app

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dipak140/oboe-music-player/internal/library"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newDeckForTest(t *testing.T, paths ...string) *Deck {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := session.DefaultConfig()
	cfg.Format = audio.PCM16(1000, 1)
	s, err := session.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	lib, err := library.NewWithLoader(4, func(path string) (*audio.Track, error) {
		if filepath.Base(path) == "broken.wav" {
			return nil, errors.New("corrupt header")
		}
		return &audio.Track{
			Name:   filepath.Base(path),
			PCM:    make([]byte, 2000),
			Format: audio.PCM16(1000, 1),
		}, nil
	}, logger)
	require.NoError(t, err)

	return NewDeck(s, lib, paths, logger)
}

func TestDeckStartsEmpty(t *testing.T) {
	d := newDeckForTest(t, "songs/a.wav", "songs/b.wav")

	names, current := d.Tracks()
	assert.Equal(t, []string{"a.wav", "b.wav"}, names)
	assert.Equal(t, -1, current)
	assert.ErrorIs(t, d.Play(), session.ErrNoTrack)
}

func TestDeckSelectTrack(t *testing.T) {
	d := newDeckForTest(t, "songs/a.wav", "songs/b.wav")

	require.NoError(t, d.SelectTrack(1))
	_, current := d.Tracks()
	assert.Equal(t, 1, current)
	assert.Equal(t, "b.wav", d.Snapshot().TrackName)

	require.NoError(t, d.Play())
	require.NoError(t, d.SelectTrack(0))
	assert.Equal(t, session.Idle, d.State())
	assert.Equal(t, "a.wav", d.Snapshot().TrackName)

	assert.ErrorIs(t, d.SelectTrack(2), ErrNoSuchTrack)
	assert.ErrorIs(t, d.SelectTrack(-1), ErrNoSuchTrack)
}

func TestDeckLoadPath(t *testing.T) {
	d := newDeckForTest(t, "songs/a.wav")

	require.NoError(t, d.LoadPath("songs/./a.wav"))
	names, current := d.Tracks()
	assert.Equal(t, []string{"a.wav"}, names, "known paths are not added twice")
	assert.Equal(t, 0, current)

	require.NoError(t, d.LoadPath("extra/c.wav"))
	names, current = d.Tracks()
	assert.Equal(t, []string{"a.wav", "c.wav"}, names)
	assert.Equal(t, 1, current)

	assert.Error(t, d.LoadPath("extra/broken.wav"))
	names, current = d.Tracks()
	assert.Equal(t, []string{"a.wav", "c.wav"}, names, "failed loads leave the list alone")
	assert.Equal(t, 1, current)
	assert.Equal(t, "c.wav", d.Snapshot().TrackName)
}
