// ABOUTME: Track loader entry points
// ABOUTME: Dispatches files to a codec adapter by extension and returns 16-bit PCM tracks
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dipak140/oboe-music-player/pkg/audio"
)

// ErrUnsupportedFormat is returned for file extensions with no decoder
var ErrUnsupportedFormat = errors.New("unsupported audio file format")

// DefaultRawFormat is assumed for headerless .pcm and .raw files
var DefaultRawFormat = audio.PCM16(44100, 1)

// Decoder converts an encoded stream into interleaved 16-bit PCM
type Decoder interface {
	Decode(r io.ReadSeeker) (*audio.Track, error)
}

var decoders = map[string]Decoder{
	".wav":  WAV{},
	".wave": WAV{},
	".mp3":  MP3{},
	".flac": FLAC{},
	".ogg":  Vorbis{},
	".oga":  Vorbis{},
	".pcm":  Raw{Format: DefaultRawFormat},
	".raw":  Raw{Format: DefaultRawFormat},
}

// For returns the decoder registered for a file's extension
func For(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	d, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return d, nil
}

// Load decodes a whole file into memory
func Load(path string) (*audio.Track, error) {
	d, err := For(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open track: %w", err)
	}
	defer f.Close()

	t, err := d.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	t.Name = filepath.Base(path)
	return t, nil
}

// LoadRaw reads headerless 16-bit little-endian PCM in the given format
func LoadRaw(r io.Reader, format audio.Format) (*audio.Track, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	pcm, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pcm: %w", err)
	}
	if len(pcm)%format.FrameSize() != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d-channel frames", audio.ErrOddLength, len(pcm), format.Channels)
	}
	return &audio.Track{PCM: pcm, Format: format}, nil
}

// track packs decoded samples, scaling them to 16 bits
func track(samples []int32, bitDepth, sampleRate, channels int) (*audio.Track, error) {
	format := audio.PCM16(sampleRate, channels)
	if err := format.Validate(); err != nil {
		return nil, err
	}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		audio.PutInt16(pcm, i, audio.SampleToInt16(s, bitDepth))
	}
	frameBytes := format.FrameSize()
	return &audio.Track{PCM: pcm[:len(pcm)/frameBytes*frameBytes], Format: format}, nil
}
