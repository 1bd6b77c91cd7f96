// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames of 16-bit PCM to Opus packets
package encode

import (
	"errors"
	"fmt"
	"time"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// OpusFrameDuration is the packet length used for the monitor stream
	OpusFrameDuration = 20 * time.Millisecond

	maxPacketSize = 4000
)

// ErrFrameSize is returned when Encode is given a partial or oversized frame
var ErrFrameSize = errors.New("pcm is not exactly one encoder frame")

// OpusSupportsRate reports whether Opus can encode at rate directly
func OpusSupportsRate(rate int) bool {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	}
	return false
}

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder    *opus.Encoder
	format     audio.Format
	frameBytes int
	pcm        []int16
	packet     []byte
}

// NewOpus creates an encoder producing 20ms packets
func NewOpus(format audio.Format, bitrate int) (*OpusEncoder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	if !OpusSupportsRate(format.SampleRate) {
		return nil, fmt.Errorf("opus does not support %dHz", format.SampleRate)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if bitrate > 0 {
		if err := encoder.SetBitrate(bitrate); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate: %w", err)
		}
	}

	frameBytes := format.BytesFor(OpusFrameDuration)
	return &OpusEncoder{
		encoder:    encoder,
		format:     format,
		frameBytes: frameBytes,
		pcm:        make([]int16, frameBytes/2),
		packet:     make([]byte, maxPacketSize),
	}, nil
}

// Encode converts one frame to an Opus packet. The returned slice is a
// fresh copy and may be retained by the caller.
func (e *OpusEncoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm) != e.frameBytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(pcm), e.frameBytes)
	}
	for i := range e.pcm {
		e.pcm[i] = audio.Int16At(pcm, i)
	}

	n, err := e.encoder.Encode(e.pcm, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.packet[:n])
	return out, nil
}

// FrameBytes returns the PCM length of one 20ms frame
func (e *OpusEncoder) FrameBytes() int {
	return e.frameBytes
}

// FrameDuration returns the packet duration
func (e *OpusEncoder) FrameDuration() time.Duration {
	return OpusFrameDuration
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
