// ABOUTME: Tests for the decoded track cache
// ABOUTME: Uses a counting loader to check hits, eviction and error handling
package library

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls atomic.Int32
	err   error
}

func (c *countingLoader) load(path string) (*audio.Track, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &audio.Track{Name: filepath.Base(path), PCM: make([]byte, 4), Format: audio.PCM16(8000, 1)}, nil
}

func TestGetCachesTracks(t *testing.T) {
	loader := &countingLoader{}
	lib, err := NewWithLoader(2, loader.load, nil)
	require.NoError(t, err)

	a1, err := lib.Get("a.wav")
	require.NoError(t, err)
	a2, err := lib.Get("./a.wav")
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, int32(1), loader.calls.Load())

	hits, misses := lib.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	loader := &countingLoader{}
	lib, err := NewWithLoader(2, loader.load, nil)
	require.NoError(t, err)

	for _, p := range []string{"a.wav", "b.wav", "a.wav", "c.wav"} {
		_, err := lib.Get(p)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, lib.Len())
	assert.Equal(t, int32(3), loader.calls.Load())

	// b was evicted, a was kept
	_, err = lib.Get("a.wav")
	require.NoError(t, err)
	assert.Equal(t, int32(3), loader.calls.Load())
	_, err = lib.Get("b.wav")
	require.NoError(t, err)
	assert.Equal(t, int32(4), loader.calls.Load())
}

func TestLoadErrorsAreNotCached(t *testing.T) {
	loader := &countingLoader{err: errors.New("corrupt")}
	lib, err := NewWithLoader(2, loader.load, nil)
	require.NoError(t, err)

	_, err = lib.Get("bad.mp3")
	assert.Error(t, err)
	_, err = lib.Get("bad.mp3")
	assert.Error(t, err)
	assert.Equal(t, int32(2), loader.calls.Load())
	assert.Zero(t, lib.Len())
}

func TestForget(t *testing.T) {
	loader := &countingLoader{}
	lib, err := NewWithLoader(2, loader.load, nil)
	require.NoError(t, err)

	_, err = lib.Get("a.wav")
	require.NoError(t, err)
	lib.Forget("a.wav")
	assert.Zero(t, lib.Len())
}

func TestConcurrentMissesLoadOnce(t *testing.T) {
	loader := &countingLoader{}
	lib, err := NewWithLoader(4, loader.load, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lib.Get("same.wav")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestNewRejectsZeroSize(t *testing.T) {
	_, err := New(0, nil)
	assert.Error(t, err)
}

func TestDefaultLoaderDecodesRawFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.raw")
	require.NoError(t, os.WriteFile(path, audio.Int16sToBytes([]int16{1, 2}), 0o644))

	lib, err := New(1, nil)
	require.NoError(t, err)
	track, err := lib.Get(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), track.Frames())
}
