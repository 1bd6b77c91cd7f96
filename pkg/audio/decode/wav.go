// ABOUTME: WAV loader backed by go-audio/wav
// ABOUTME: Accepts integer PCM at 16, 24 or 32 bits and scales to 16-bit
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/go-audio/wav"
)

var ErrNotWAV = errors.New("not a valid wav file")

// WAV decodes RIFF/WAVE integer PCM
type WAV struct{}

// Decode reads the whole file
func (WAV) Decode(r io.ReadSeeker) (*audio.Track, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported wav audio format %d (integer pcm only)", d.WavAudioFormat)
	}

	bitDepth := int(d.BitDepth)
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav data: %w", err)
	}

	samples := make([]int32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int32(v)
	}
	return track(samples, bitDepth, int(d.SampleRate), int(d.NumChans))
}
