// ABOUTME: Simple linear resampler for converting 16-bit PCM sample rates
// ABOUTME: Used to bring backing tracks to the session's device rate
package resample

import (
	"fmt"

	"github.com/dipak140/oboe-music-player/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts interleaved input frames into output and returns the
// number of samples written. Interpolation stops one frame before the end
// of input since the next frame is needed to interpolate.
func (r *Resampler) Resample(input []int16, output []int16) int {
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels

	outIdx := 0
	for outIdx < outputFrames {
		inputIdx := int(r.position)
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := r.position - float64(inputIdx)

		for ch := 0; ch < r.channels; ch++ {
			s1 := float64(input[inputIdx*r.channels+ch])
			s2 := float64(input[(inputIdx+1)*r.channels+ch])
			output[outIdx*r.channels+ch] = int16(s1*(1.0-frac) + s2*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// Keep only the fractional part for the next chunk
	r.position -= float64(int(r.position))

	return outIdx * r.channels
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// Bytes resamples a whole little-endian 16-bit PCM buffer in one pass
func (r *Resampler) Bytes(pcm []byte) ([]byte, error) {
	if r.inputRate == r.outputRate {
		return pcm, nil
	}
	samples, err := audio.BytesToInt16s(pcm)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}
	if len(samples)%r.channels != 0 {
		return nil, fmt.Errorf("resample: %d samples is not a whole number of %d-channel frames", len(samples), r.channels)
	}

	r.Reset()
	out := make([]int16, r.OutputSamplesNeeded(len(samples)))
	n := r.Resample(samples, out)
	return audio.Int16sToBytes(out[:n]), nil
}
