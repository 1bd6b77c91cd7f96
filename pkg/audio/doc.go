// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Track and 16-bit PCM helpers shared by the engine
// Package audio provides the PCM types used throughout the mixing engine.
//
// All engine buffers are raw little-endian 16-bit PCM byte slices tagged with
// a Format. Helpers here read and write individual samples and saturate
// arithmetic results to the 16-bit range.
//
// Example:
//
//	format := audio.PCM16(48000, 1)
//	period := format.BytesFor(10 * time.Millisecond) // 960 bytes
//
//	s := audio.Int16At(buf, 3)
//	audio.PutInt16(buf, 3, audio.ClampInt16(int32(s)*2))
package audio
