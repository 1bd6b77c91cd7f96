// ABOUTME: FLAC loader backed by mewkiz/flac
// ABOUTME: Interleaves decoded subframes and scales them to 16-bit
package decode

import (
	"errors"
	"fmt"
	"io"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLAC decodes native FLAC streams
type FLAC struct{}

// Decode reads every frame of the stream
func (FLAC) Decode(r io.ReadSeeker) (*audio.Track, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open flac stream: %w", err)
	}
	defer stream.Close()

	channels := int(stream.Info.NChannels)
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported flac channel count %d", channels)
	}

	var samples []int32
	if stream.Info.NSamples > 0 {
		samples = make([]int32, 0, int(stream.Info.NSamples)*channels)
	}

	for {
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("flac decode error: %w", err)
		}

		n := len(frame.Subframes[0].Samples)
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, frame.Subframes[ch].Samples[i])
			}
		}
	}

	return track(samples, int(stream.Info.BitsPerSample), int(stream.Info.SampleRate), channels)
}
