// ABOUTME: Audio type definitions
// ABOUTME: Defines PCM formats, decoded tracks and sample conversions
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// 16-bit audio range constants
	MaxInt16 = math.MaxInt16 // 32767
	MinInt16 = math.MinInt16 // -32768
)

// ErrOddLength is returned when a 16-bit PCM payload does not end on a sample boundary.
var ErrOddLength = errors.New("pcm length is not a whole number of 16-bit samples")

// Encoding identifies the sample encoding of a PCM stream
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingPCM16
	EncodingPCM8
	EncodingPCM24
	EncodingFloat32
)

func (e Encoding) String() string {
	switch e {
	case EncodingPCM16:
		return "pcm16"
	case EncodingPCM8:
		return "pcm8"
	case EncodingPCM24:
		return "pcm24"
	case EncodingFloat32:
		return "float32"
	default:
		return "unknown"
	}
}

// Width returns the number of bytes one sample occupies, or 0 if unknown.
func (e Encoding) Width() int {
	switch e {
	case EncodingPCM8:
		return 1
	case EncodingPCM16:
		return 2
	case EncodingPCM24:
		return 3
	case EncodingFloat32:
		return 4
	default:
		return 0
	}
}

// Format describes a PCM stream format
type Format struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// PCM16 returns a signed 16-bit little-endian format
func PCM16(sampleRate, channels int) Format {
	return Format{Encoding: EncodingPCM16, SampleRate: sampleRate, Channels: channels}
}

// FrameSize returns bytes per interleaved frame
func (f Format) FrameSize() int {
	return f.Encoding.Width() * f.Channels
}

// Validate checks the format is usable for 16-bit processing
func (f Format) Validate() error {
	if f.Encoding != EncodingPCM16 {
		return fmt.Errorf("unsupported encoding %s", f.Encoding)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	return nil
}

// BytesFor returns the byte length of d worth of audio, rounded down to whole frames.
func (f Format) BytesFor(d time.Duration) int {
	frames := int(int64(f.SampleRate) * int64(d) / int64(time.Second))
	return frames * f.FrameSize()
}

// FramesToMs converts a frame count to milliseconds
func (f Format) FramesToMs(frames int64) int64 {
	if f.SampleRate <= 0 {
		return 0
	}
	return frames * 1000 / int64(f.SampleRate)
}

// MsToFrames converts milliseconds to a frame count
func (f Format) MsToFrames(ms int64) int64 {
	return ms * int64(f.SampleRate) / 1000
}

func (f Format) String() string {
	return fmt.Sprintf("%s %dHz %dch", f.Encoding, f.SampleRate, f.Channels)
}

// Track is a fully decoded backing track held in memory
type Track struct {
	Name   string
	PCM    []byte // interleaved 16-bit little-endian
	Format Format
}

// Frames returns the number of frames in the track
func (t *Track) Frames() int64 {
	fs := t.Format.FrameSize()
	if fs == 0 {
		return 0
	}
	return int64(len(t.PCM) / fs)
}

// DurationMs returns the track length in milliseconds
func (t *Track) DurationMs() int64 {
	return t.Format.FramesToMs(t.Frames())
}

// Int16At reads sample i from little-endian 16-bit PCM
func Int16At(b []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(b[i*2:]))
}

// PutInt16 writes sample i into little-endian 16-bit PCM
func PutInt16(b []byte, i int, v int16) {
	binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
}

// ClampInt16 saturates v to the 16-bit range
func ClampInt16(v int32) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// Int16sToBytes packs samples as little-endian 16-bit PCM
func Int16sToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		PutInt16(out, i, s)
	}
	return out
}

// BytesToInt16s unpacks little-endian 16-bit PCM
func BytesToInt16s(b []byte) ([]int16, error) {
	if len(b)%2 != 0 {
		return nil, ErrOddLength
	}
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = Int16At(b, i)
	}
	return out, nil
}

// SampleToInt16 scales a sample of the given bit depth to 16 bits
func SampleToInt16(sample int32, bitDepth int) int16 {
	switch {
	case bitDepth == 16:
		return int16(sample)
	case bitDepth > 16:
		return int16(sample >> (bitDepth - 16))
	case bitDepth > 0:
		return int16(sample << (16 - bitDepth))
	default:
		return 0
	}
}

// FloatToInt16 converts a [-1, 1] float sample to 16 bits with clipping
func FloatToInt16(f float32) int16 {
	v := float64(f) * 32767.0
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}
