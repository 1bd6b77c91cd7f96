// ABOUTME: Channel layout conversion for 16-bit PCM
// ABOUTME: Stereo to mono averaging with optional gain, mono to stereo and pan
package downmix

import (
	"errors"
	"fmt"

	"github.com/dipak140/oboe-music-player/pkg/audio"
)

var (
	// ErrPartialFrame is returned when stereo input does not end on a whole (L, R) pair
	ErrPartialFrame = errors.New("stereo pcm length is not a multiple of 4 bytes")

	// ErrShortDestination is returned when dst cannot hold the converted samples
	ErrShortDestination = errors.New("destination buffer too small")
)

// Stereo16ToMono averages interleaved little-endian (L, R) pairs into mono.
// Each channel is scaled by gain before the pair is combined.
func Stereo16ToMono(stereo []byte, gain float64) ([]byte, error) {
	if len(stereo)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPartialFrame, len(stereo))
	}
	mono := make([]byte, len(stereo)/2)
	if _, err := Into(mono, stereo, gain); err != nil {
		return nil, err
	}
	return mono, nil
}

// Into is Stereo16ToMono writing into dst. Returns the number of bytes written.
func Into(dst, stereo []byte, gain float64) (int, error) {
	if len(stereo)%4 != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrPartialFrame, len(stereo))
	}
	n := len(stereo) / 2
	if len(dst) < n {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrShortDestination, n, len(dst))
	}

	pairs := n / 2
	if gain == 1 {
		for i := 0; i < pairs; i++ {
			l := int32(audio.Int16At(stereo, 2*i))
			r := int32(audio.Int16At(stereo, 2*i+1))
			audio.PutInt16(dst, i, int16((l+r)/2))
		}
		return n, nil
	}

	for i := 0; i < pairs; i++ {
		l := scale(audio.Int16At(stereo, 2*i), gain)
		r := scale(audio.Int16At(stereo, 2*i+1), gain)
		audio.PutInt16(dst, i, audio.ClampInt16((l+r)/2))
	}
	return n, nil
}

// MonoToStereo16 duplicates each mono sample into both channels
func MonoToStereo16(mono []byte) ([]byte, error) {
	if len(mono)%2 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", audio.ErrOddLength, len(mono))
	}
	stereo := make([]byte, len(mono)*2)
	for i := 0; i < len(mono)/2; i++ {
		s := audio.Int16At(mono, i)
		audio.PutInt16(stereo, 2*i, s)
		audio.PutInt16(stereo, 2*i+1, s)
	}
	return stereo, nil
}

// PanGains returns the (left, right) multipliers for pan in [-1, 1].
// Centre is unity on both channels; moving towards one side attenuates
// the other linearly.
func PanGains(pan float64) (left, right float64) {
	if pan < -1 {
		pan = -1
	} else if pan > 1 {
		pan = 1
	}
	return min(1, 1-pan), min(1, 1+pan)
}

// Pan applies PanGains to interleaved stereo in place
func Pan(stereo []byte, pan float64) error {
	if len(stereo)%4 != 0 {
		return fmt.Errorf("%w: %d bytes", ErrPartialFrame, len(stereo))
	}
	lg, rg := PanGains(pan)
	for i := 0; i < len(stereo)/4; i++ {
		audio.PutInt16(stereo, 2*i, audio.ClampInt16(scale(audio.Int16At(stereo, 2*i), lg)))
		audio.PutInt16(stereo, 2*i+1, audio.ClampInt16(scale(audio.Int16At(stereo, 2*i+1), rg)))
	}
	return nil
}

// Gain scales 16-bit PCM in place with clipping
func Gain(pcm []byte, gain float64) error {
	if len(pcm)%2 != 0 {
		return fmt.Errorf("%w: %d bytes", audio.ErrOddLength, len(pcm))
	}
	if gain == 1 {
		return nil
	}
	for i := 0; i < len(pcm)/2; i++ {
		audio.PutInt16(pcm, i, audio.ClampInt16(scale(audio.Int16At(pcm, i), gain)))
	}
	return nil
}

func scale(s int16, gain float64) int32 {
	v := float64(s) * gain
	if v > 1<<30 {
		return 1 << 30
	}
	if v < -(1 << 30) {
		return -(1 << 30)
	}
	return int32(v)
}
