// ABOUTME: Latency estimation between the recorder and player streams
// ABOUTME: Normalises frame positions to time and corrects for timestamp epoch differences
package latency

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSampleRate is returned when a sample carries a non-positive rate
var ErrInvalidSampleRate = errors.New("sample rate must be positive")

// Sample is one simultaneous reading of both stream clocks
type Sample struct {
	RecorderTimestampNs int64
	RecorderFramePos    int64
	PlayerTimestampNs   int64
	PlayerFramePos      int64
	SampleRate          int
}

// Estimate returns how far recorded audio trails the music track in
// milliseconds. Positive means the recording lags.
func Estimate(s Sample) (float64, error) {
	if s.SampleRate <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSampleRate, s.SampleRate)
	}

	rate := float64(s.SampleRate)
	timestampDeltaMs := float64(s.RecorderTimestampNs-s.PlayerTimestampNs) / 1e6
	recorderFrameTimeMs := float64(s.RecorderFramePos) / rate * 1000
	playerFrameTimeMs := float64(s.PlayerFramePos) / rate * 1000

	return timestampDeltaMs - recorderFrameTimeMs + playerFrameTimeMs, nil
}

// CompensationFrames converts a latency into the number of frames to trim
// from the start of the recording so it lines up with the track. Negative
// results mean the recording must be padded instead.
func CompensationFrames(latencyMs float64, sampleRate int) int64 {
	return int64(math.Round(latencyMs * float64(sampleRate) / 1000))
}
