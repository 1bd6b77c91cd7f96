// ABOUTME: Ogg Vorbis loader backed by jfreymuth/oggvorbis
// ABOUTME: Converts the decoder's float samples to 16-bit with clipping
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/jfreymuth/oggvorbis"
)

// Vorbis decodes Ogg Vorbis streams
type Vorbis struct{}

// Decode reads the whole stream
func (Vorbis) Decode(r io.ReadSeeker) (*audio.Track, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open ogg vorbis stream: %w", err)
	}

	format := audio.PCM16(dec.SampleRate(), dec.Channels())
	if err := format.Validate(); err != nil {
		return nil, err
	}

	buf := make([]float32, 4096*format.Channels)
	var pcm []byte
	for {
		n, err := dec.Read(buf)
		for _, f := range buf[:n] {
			v := audio.FloatToInt16(f)
			pcm = append(pcm, byte(v), byte(v>>8))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("vorbis decode error: %w", err)
		}
		if n == 0 {
			break
		}
	}

	pcm = pcm[:len(pcm)/format.FrameSize()*format.FrameSize()]
	return &audio.Track{PCM: pcm, Format: format}, nil
}
