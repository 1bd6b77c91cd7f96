// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pipe-fed preview playback with software volume control
package output

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

// ErrNotOpen is returned by Write before Open succeeds
var ErrNotOpen = errors.New("output not initialized")

// Oto output implementation using oto library
type Oto struct {
	logger     *zap.Logger
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int

	mu     sync.Mutex
	volume int
	muted  bool
	ready  bool
}

// NewOto creates a new Oto output
func NewOto(logger *zap.Logger) *Oto {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oto{
		logger: logger.Named("output"),
		volume: 100,
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	if err := audio.PCM16(sampleRate, channels).Validate(); err != nil {
		return err
	}

	// oto allows one context per process, so a second Open keeps the first format
	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			o.logger.Warn("format change ignored, oto cannot reinitialize",
				zap.Int("rate", o.sampleRate), zap.Int("channels", o.channels),
				zap.Int("requested_rate", sampleRate), zap.Int("requested_channels", channels))
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.mu.Lock()
	o.ready = true
	o.mu.Unlock()

	o.logger.Info("audio output initialized", zap.Int("rate", sampleRate), zap.Int("channels", channels))
	return nil
}

// Write queues pcm for playback, blocking while the player drains
func (o *Oto) Write(pcm []byte) error {
	o.mu.Lock()
	ready := o.ready
	volume, muted := o.volume, o.muted
	o.mu.Unlock()

	if !ready {
		return ErrNotOpen
	}

	out, err := applyVolume(pcm, volume, muted)
	if err != nil {
		return err
	}
	if _, err := o.pipeWriter.Write(out); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	o.ready = false
	o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		return o.otoCtx.Suspend()
	}
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	volume = max(0, min(100, volume))
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
	o.logger.Debug("volume set", zap.Int("volume", volume))
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

// GetVolume returns current volume
func (o *Oto) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// applyVolume scales 16-bit pcm into a new buffer with clipping
func applyVolume(pcm []byte, volume int, muted bool) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, audio.ErrOddLength
	}
	out := make([]byte, len(pcm))
	multiplier := getVolumeMultiplier(volume, muted)
	if multiplier == 1 {
		copy(out, pcm)
		return out, nil
	}
	if multiplier == 0 {
		return out, nil
	}

	for i := 0; i < len(pcm)/2; i++ {
		scaled := int32(float64(audio.Int16At(pcm, i)) * multiplier)
		audio.PutInt16(out, i, audio.ClampInt16(scaled))
	}
	return out, nil
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
