// ABOUTME: Tests for track loaders
// ABOUTME: Round-trips WAV through the go-audio encoder and checks dispatch and raw input
package decode

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, rate, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}))
	require.NoError(t, enc.Close())
}

func TestLoadWAV16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backing.wav")
	writeWAV(t, path, 22050, 16, 2, []int{100, -100, 32767, -32768})

	track, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "backing.wav", track.Name)
	assert.Equal(t, audio.PCM16(22050, 2), track.Format)
	assert.Equal(t, int64(2), track.Frames())

	got, err := audio.BytesToInt16s(track.PCM)
	require.NoError(t, err)
	assert.Equal(t, []int16{100, -100, 32767, -32768}, got)
}

func TestLoadWAV24ScalesTo16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hires.WAV")
	writeWAV(t, path, 48000, 24, 1, []int{256, -256, 0x7FFF00})

	track, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, audio.PCM16(48000, 1), track.Format)

	got, err := audio.BytesToInt16s(track.PCM)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -1, 0x7FFF}, got)
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.wav", "b.mp3", "c.flac", "d.ogg"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("not audio "), 10), 0o644))

		_, err := Load(path)
		assert.Error(t, err, name)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("song.aiff")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = For("noext")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestLoadRawFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "take.pcm")
	require.NoError(t, os.WriteFile(path, audio.Int16sToBytes([]int16{1, 2, 3}), 0o644))

	track, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRawFormat, track.Format)
	assert.Equal(t, int64(3), track.Frames())
	assert.Equal(t, "take.pcm", track.Name)
}

func TestLoadRaw(t *testing.T) {
	pcm := audio.Int16sToBytes([]int16{1, 2, 3, 4})

	track, err := LoadRaw(bytes.NewReader(pcm), audio.PCM16(8000, 2))
	require.NoError(t, err)
	assert.Equal(t, pcm, track.PCM)
	assert.Equal(t, int64(2), track.Frames())

	_, err = LoadRaw(bytes.NewReader(pcm[:6]), audio.PCM16(8000, 2))
	assert.ErrorIs(t, err, audio.ErrOddLength)

	_, err = LoadRaw(bytes.NewReader(pcm), audio.Format{Encoding: audio.EncodingPCM8, SampleRate: 8000, Channels: 1})
	assert.Error(t, err)
}
