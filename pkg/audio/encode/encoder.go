// ABOUTME: Encoder interface definition
// ABOUTME: Frame-based encoders for the monitor stream
package encode

import "time"

// Encoder encodes fixed-size frames of 16-bit little-endian PCM
type Encoder interface {
	// Encode converts exactly FrameBytes of PCM to one packet
	Encode(pcm []byte) ([]byte, error)

	// FrameBytes is the PCM length Encode expects
	FrameBytes() int

	// FrameDuration is the audio length of one packet
	FrameDuration() time.Duration

	// Close releases encoder resources
	Close() error
}
