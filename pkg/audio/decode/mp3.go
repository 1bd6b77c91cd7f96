// ABOUTME: MP3 loader backed by go-mp3
// ABOUTME: go-mp3 always produces 16-bit little-endian stereo
package decode

import (
	"fmt"
	"io"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3 decodes MPEG-1/2 layer III streams
type MP3 struct{}

// Decode reads the whole stream
func (MP3) Decode(r io.ReadSeeker) (*audio.Track, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	format := audio.PCM16(dec.SampleRate(), 2)
	// Trailing partial frame from a truncated stream
	pcm = pcm[:len(pcm)/format.FrameSize()*format.FrameSize()]
	return &audio.Track{PCM: pcm, Format: format}, nil
}
