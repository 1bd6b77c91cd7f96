// ABOUTME: Audio device package
// ABOUTME: Full-duplex capture and playback built on miniaudio
// Package device owns the audio hardware.
//
// Duplex opens the default capture and playback devices as one malgo
// stream. Each period the captured frames are handed to a Processor (the
// mixer), the result is played back when monitoring is on, and every Tap
// is offered the mixed frames.
package device
