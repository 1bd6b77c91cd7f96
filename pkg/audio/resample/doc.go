// ABOUTME: Package docs for the 16-bit PCM rate converter
// ABOUTME: Shows whole-track conversion to a session's device rate
// Package resample brings 16-bit PCM recorded at one sample rate to another
// by linear interpolation between neighbouring frames.
//
// Backing tracks are converted once when a session prepares them, so the
// usual entry point is Bytes on a whole interleaved buffer:
//
//	r := resample.New(track.Format.SampleRate, 48000, track.Format.Channels)
//	pcm, err := r.Bytes(track.PCM)
//
// Resample works on int16 slices for callers that stream in blocks and size
// their output with OutputSamplesNeeded.
package resample
