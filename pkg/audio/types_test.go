// ABOUTME: Tests for audio types
// ABOUTME: Tests sample conversion, clamping and format arithmetic
package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		expected int16
	}{
		{"zero", 0, 0},
		{"in range", 1234, 1234},
		{"max", 32767, 32767},
		{"above max", 40000, 32767},
		{"min", -32768, -32768},
		{"below min", -70000, -32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampInt16(tt.input))
		})
	}
}

func TestSampleToInt16(t *testing.T) {
	tests := []struct {
		name     string
		input    int32
		bitDepth int
		expected int16
	}{
		{"16bit passthrough", -1200, 16, -1200},
		{"24bit positive", 100 << 8, 24, 100},
		{"24bit negative", -100 << 8, 24, -100},
		{"8bit", 64, 8, 64 << 8},
		{"unknown depth", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleToInt16(tt.input, tt.bitDepth))
		})
	}
}

func TestFloatToInt16(t *testing.T) {
	assert.Equal(t, int16(0), FloatToInt16(0))
	assert.Equal(t, int16(32767), FloatToInt16(1))
	assert.Equal(t, int16(32767), FloatToInt16(1.5))
	assert.Equal(t, int16(-32768), FloatToInt16(-2))
}

func TestInt16RoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 1000}

	b := Int16sToBytes(samples)
	require.Len(t, b, len(samples)*2)

	back, err := BytesToInt16s(b)
	require.NoError(t, err)
	assert.Equal(t, samples, back)
}

func TestBytesToInt16sRejectsOddLength(t *testing.T) {
	_, err := BytesToInt16s([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrOddLength)
}

func TestFormatArithmetic(t *testing.T) {
	f := PCM16(48000, 2)

	assert.Equal(t, 4, f.FrameSize())
	assert.Equal(t, 48000*4/100, f.BytesFor(10*time.Millisecond))
	assert.Equal(t, int64(1000), f.FramesToMs(48000))
	assert.Equal(t, int64(24000), f.MsToFrames(500))
	assert.NoError(t, f.Validate())

	assert.Error(t, Format{Encoding: EncodingFloat32, SampleRate: 48000, Channels: 2}.Validate())
	assert.Error(t, PCM16(0, 2).Validate())
	assert.Error(t, PCM16(48000, 6).Validate())
}

func TestTrackDuration(t *testing.T) {
	track := &Track{
		PCM:    make([]byte, 44100*2*2),
		Format: PCM16(44100, 2),
	}

	assert.Equal(t, int64(44100), track.Frames())
	assert.Equal(t, int64(1000), track.DurationMs())
}
