// ABOUTME: Stream mixer package
// ABOUTME: Mixes a live capture buffer with buffered music once per device period
// Package mixer implements the real-time mixing step.
//
// A Mixer is driven once per audio I/O cycle with a MixRequest holding the
// captured buffer. When the music gate is open it pulls the same number of
// bytes from its MusicSource and writes
//
//	clamp(original*originalGain + music*musicGain)
//
// back into the capture buffer at 16-bit sample width. Process never blocks,
// never panics and never returns nil: unsupported formats pass through and
// missing music is treated as silence.
//
// Byte width and gain application point are configuration, not separate
// mixer types.
package mixer
