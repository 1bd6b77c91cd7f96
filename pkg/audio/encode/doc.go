// ABOUTME: Audio encoder package
// ABOUTME: Opus packetisation of the mixed stream for remote listeners
// Package encode provides frame-based audio encoders.
//
// The monitor stream sends the mixed karaoke output to remote listeners as
// 20ms Opus packets. Input is always interleaved signed 16-bit PCM.
//
// Example:
//
//	enc, err := encode.NewOpus(audio.PCM16(48000, 1), 64000)
//	packet, err := enc.Encode(frame) // len(frame) == enc.FrameBytes()
package encode
