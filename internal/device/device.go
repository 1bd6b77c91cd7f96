// ABOUTME: Duplex audio device driving the karaoke mix from the hardware callback
// ABOUTME: Wraps malgo capture+playback and fans the mixed stream out to taps
package device

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/mixer"
	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

var (
	ErrNotOpen     = errors.New("device not open")
	ErrAlreadyOpen = errors.New("device already open")
)

// Processor mixes one device period. mixer.Mixer satisfies it.
type Processor interface {
	Process(req mixer.MixRequest) []byte
}

// Tap receives every mixed period. Offer runs on the audio thread, must
// not block and must copy pcm if it keeps it.
type Tap interface {
	Offer(pcm []byte)
}

// Config describes the duplex stream
type Config struct {
	Format   audio.Format
	PeriodMs int
	// Monitor plays the mix back through the output device. When false
	// the playback side is fed silence.
	Monitor bool
}

// Stats holds callback counters
type Stats struct {
	Callbacks uint64
	Frames    uint64
	Short     uint64
}

// Duplex is a full-duplex malgo device
type Duplex struct {
	proc   Processor
	logger *zap.Logger

	mu       sync.Mutex
	cfg      Config
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	running  bool

	taps    atomic.Pointer[[]Tap]
	scratch []byte

	callbacks atomic.Uint64
	frames    atomic.Uint64
	short     atomic.Uint64
}

// New creates a duplex device feeding capture through proc
func New(proc Processor, logger *zap.Logger) *Duplex {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Duplex{
		proc:   proc,
		logger: logger.Named("device"),
	}
	d.taps.Store(&[]Tap{})
	return d
}

// AddTap registers a consumer of the mixed stream. Safe while running.
func (d *Duplex) AddTap(t Tap) {
	for {
		old := d.taps.Load()
		next := append(append([]Tap{}, *old...), t)
		if d.taps.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Open initializes the default capture and playback devices
func (d *Duplex) Open(cfg Config) error {
	if err := cfg.Format.Validate(); err != nil {
		return err
	}
	if cfg.PeriodMs <= 0 {
		return fmt.Errorf("period_ms must be positive, got %d", cfg.PeriodMs)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		return ErrAlreadyOpen
	}

	if d.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
			d.logger.Debug("miniaudio", zap.String("msg", msg))
		})
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		d.malgoCtx = ctx
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(cfg.Format.Channels)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(cfg.Format.Channels)
	deviceConfig.SampleRate = uint32(cfg.Format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(cfg.PeriodMs)
	deviceConfig.Alsa.NoMMap = 1

	d.cfg = cfg
	d.scratch = make([]byte, cfg.Format.BytesFor(time.Duration(cfg.PeriodMs)*time.Millisecond)*4)

	callbacks := malgo.DeviceCallbacks{
		Data: d.process,
	}

	device, err := malgo.InitDevice(d.malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize duplex device: %w", err)
	}
	d.device = device

	d.logger.Info("duplex device opened",
		zap.Stringer("format", cfg.Format),
		zap.Int("period_ms", cfg.PeriodMs),
		zap.Bool("monitor", cfg.Monitor))
	return nil
}

// Start begins the audio callbacks
func (d *Duplex) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return ErrNotOpen
	}
	if d.running {
		return nil
	}
	if err := d.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	d.running = true
	d.logger.Info("duplex device started")
	return nil
}

// Stop halts the audio callbacks. The device can be started again.
func (d *Duplex) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil || !d.running {
		return nil
	}
	d.running = false
	if err := d.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	d.logger.Info("duplex device stopped")
	return nil
}

// Close stops and releases the device and context
func (d *Duplex) Close() error {
	if err := d.Stop(); err != nil {
		d.logger.Warn("device stop error", zap.Error(err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		d.device.Uninit()
		d.device = nil
	}
	if d.malgoCtx != nil {
		if err := d.malgoCtx.Uninit(); err != nil {
			d.logger.Warn("malgo context uninit error", zap.Error(err))
		}
		d.malgoCtx.Free()
		d.malgoCtx = nil
	}
	return nil
}

// Stats returns a snapshot of callback counters
func (d *Duplex) Stats() Stats {
	return Stats{
		Callbacks: d.callbacks.Load(),
		Frames:    d.frames.Load(),
		Short:     d.short.Load(),
	}
}

// process is the malgo data callback. It runs on the audio thread and
// must never block or panic.
func (d *Duplex) process(out, in []byte, frames uint32) {
	d.callbacks.Add(1)
	d.frames.Add(uint64(frames))

	frameSize := d.cfg.Format.FrameSize()
	n := int(frames) * frameSize
	if len(in) < n {
		d.short.Add(1)
		n = len(in) / frameSize * frameSize
	}

	if cap(d.scratch) < n {
		// Larger period than configured; allocating here is rare
		d.scratch = make([]byte, n)
	}
	buf := d.scratch[:n]
	copy(buf, in[:n])

	mixed := d.proc.Process(mixer.MixRequest{
		Original:           buf,
		Requested:          n,
		Encoding:           d.cfg.Format.Encoding,
		Channels:           d.cfg.Format.Channels,
		SampleRate:         d.cfg.Format.SampleRate,
		CaptureTimestampNs: time.Now().UnixNano(),
	})

	if d.cfg.Monitor {
		c := copy(out, mixed)
		clear(out[c:])
	} else {
		clear(out)
	}

	for _, t := range *d.taps.Load() {
		t.Offer(mixed)
	}
}
