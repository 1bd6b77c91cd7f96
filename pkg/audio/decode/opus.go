// ABOUTME: Opus packet decoder
// ABOUTME: Decodes monitor stream packets back to 16-bit PCM for listeners and tests
package decode

import (
	"fmt"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is 120ms at 48kHz, the longest packet Opus allows
const maxOpusFrame = 5760

// OpusDecoder decodes individual Opus packets
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm     []int16
}

// NewOpus creates a packet decoder for the given format
func NewOpus(format audio.Format) (*OpusDecoder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm:     make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one packet to little-endian 16-bit PCM
func (d *OpusDecoder) Decode(packet []byte) ([]byte, error) {
	n, err := d.decoder.Decode(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}
	return audio.Int16sToBytes(d.pcm[:n*d.format.Channels]), nil
}

// Format returns the decoder's output format
func (d *OpusDecoder) Format() audio.Format {
	return d.format
}
