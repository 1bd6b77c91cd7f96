// ABOUTME: Audio output package for preview playback
// ABOUTME: Provides the Output interface and an oto implementation
// Package output plays 16-bit PCM on the default device.
//
// It is used to preview backing tracks and recorded takes outside the
// duplex karaoke stream.
//
// Example:
//
//	out := output.NewOto(logger)
//	err := out.Open(48000, 2)
//	err = out.Write(pcm)
package output
