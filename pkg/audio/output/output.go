// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for preview playback backends
package output

// Output represents an audio output device for 16-bit little-endian PCM
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs audio (blocks until written)
	Write(pcm []byte) error

	// Close releases output resources
	Close() error
}

// Volume is implemented by outputs with software gain
type Volume interface {
	SetVolume(volume int)
	GetVolume() int
	SetMuted(muted bool)
	IsMuted() bool
}
