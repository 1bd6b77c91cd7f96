// ABOUTME: Real-time stream mixer combining live capture with buffered music
// ABOUTME: Lock-free gains and gate, silence on underrun, passthrough on unsupported formats
package mixer

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"go.uber.org/zap"
)

const (
	DefaultMusicVolume    = 0.5
	DefaultOriginalVolume = 0.5

	warnInterval = time.Second
)

// GainOrder selects where the music gain is applied
type GainOrder int

const (
	// GainAtMix applies the music gain per sample in Process
	GainAtMix GainOrder = iota
	// GainAtDownmix means the producer already scaled the music while
	// downmixing; Process uses unity gain for music
	GainAtDownmix
)

// ParseGainOrder maps a config string to a GainOrder
func ParseGainOrder(s string) (GainOrder, bool) {
	switch s {
	case "", "mix":
		return GainAtMix, true
	case "downmix":
		return GainAtDownmix, true
	default:
		return GainAtMix, false
	}
}

// MusicSource is the read side of the music ring. It must never block.
type MusicSource interface {
	TryRead(p []byte) (n int, ok bool)
}

// Config controls how requests are mixed
type Config struct {
	// SampleWidth is the mixing width in bytes. Only 2 mixes; any other
	// width passes capture audio through untouched.
	SampleWidth int
	// Channels is the channel layout of the buffered music. Requests with
	// a different layout pass through. Zero accepts any layout.
	Channels       int
	GainOrder      GainOrder
	MusicVolume    float64
	OriginalVolume float64
}

// DefaultConfig returns a 16-bit mono configuration with 0.5/0.5 gains
func DefaultConfig() Config {
	return Config{
		SampleWidth:    2,
		Channels:       1,
		GainOrder:      GainAtMix,
		MusicVolume:    DefaultMusicVolume,
		OriginalVolume: DefaultOriginalVolume,
	}
}

// MixRequest is one audio I/O cycle as presented by the device driver
type MixRequest struct {
	Original           []byte
	Requested          int
	Encoding           audio.Encoding
	Channels           int
	SampleRate         int
	CaptureTimestampNs int64
}

// Stats holds mixer counters
type Stats struct {
	Cycles        uint64
	Mixed         uint64
	Gated         uint64
	Passthrough   uint64
	Underruns     uint64
	UnderrunBytes uint64
	Contended     uint64
}

// Clock is the frame position of both streams as seen by the mixer
type Clock struct {
	CaptureFrames      int64
	CaptureTimestampNs int64
	MusicFrames        int64
	MusicTimestampNs   int64
}

// Mixer mixes buffered music into capture buffers. Process must be called
// from a single goroutine; the setters are safe from any goroutine.
type Mixer struct {
	src    MusicSource
	cfg    Config
	logger *zap.Logger

	gate         atomic.Bool
	musicGain    atomic.Uint64
	originalGain atomic.Uint64

	scratch []byte

	cycles        atomic.Uint64
	mixed         atomic.Uint64
	gated         atomic.Uint64
	passthrough   atomic.Uint64
	underruns     atomic.Uint64
	underrunBytes atomic.Uint64
	contended     atomic.Uint64

	captureFrames atomic.Int64
	captureTs     atomic.Int64
	musicFrames   atomic.Int64
	musicTs       atomic.Int64

	lastWarn atomic.Int64
}

// New creates a mixer reading music from src. The gate starts closed.
func New(src MusicSource, cfg Config, logger *zap.Logger) *Mixer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SampleWidth == 0 {
		cfg.SampleWidth = 2
	}

	m := &Mixer{
		src:    src,
		cfg:    cfg,
		logger: logger.Named("mixer"),
	}
	m.SetMusicVolume(cfg.MusicVolume)
	m.SetOriginalVolume(cfg.OriginalVolume)
	return m
}

// Process mixes one cycle and returns the buffer the host should emit.
// The mix is written into req.Original in place. Unsupported requests
// return req.Original unchanged; an empty ring contributes silence.
func (m *Mixer) Process(req MixRequest) []byte {
	m.cycles.Add(1)
	orig := req.Original

	if w := req.Encoding.Width(); w > 0 && req.Channels > 0 {
		m.captureFrames.Add(int64(len(orig) / (w * req.Channels)))
		m.captureTs.Store(req.CaptureTimestampNs)
	}

	if !m.gate.Load() {
		m.gated.Add(1)
		return orig
	}

	if reason := m.unsupported(req); reason != "" {
		m.passthrough.Add(1)
		m.warn("passing capture through", zap.String("reason", reason),
			zap.Stringer("encoding", req.Encoding), zap.Int("channels", req.Channels),
			zap.Int("bytes", len(orig)), zap.Int("requested", req.Requested))
		return orig
	}

	n := len(orig)
	if cap(m.scratch) < n {
		m.scratch = make([]byte, n)
	}
	music := m.scratch[:n]

	got, ok := m.src.TryRead(music)
	if !ok {
		m.contended.Add(1)
	}
	if got > 0 {
		m.musicFrames.Add(int64(got / (2 * req.Channels)))
		m.musicTs.Store(req.CaptureTimestampNs)
	}
	if got < n {
		clear(music[got:])
		m.underruns.Add(1)
		m.underrunBytes.Add(uint64(n - got))
	}

	og := math.Float64frombits(m.originalGain.Load())
	mg := math.Float64frombits(m.musicGain.Load())
	if m.cfg.GainOrder == GainAtDownmix {
		mg = 1
	}

	for i := 0; i < n/2; i++ {
		o := float64(audio.Int16At(orig, i))
		s := float64(audio.Int16At(music, i))
		audio.PutInt16(orig, i, clamp(o*og+s*mg))
	}

	m.mixed.Add(1)
	return orig
}

func (m *Mixer) unsupported(req MixRequest) string {
	switch {
	case req.Encoding != audio.EncodingPCM16:
		return "encoding"
	case m.cfg.SampleWidth != 2:
		return "sample width"
	case req.Channels <= 0:
		return "channels"
	case m.cfg.Channels != 0 && req.Channels != m.cfg.Channels:
		return "channel layout"
	case len(req.Original)%(2*req.Channels) != 0:
		return "partial frame"
	case req.Requested != 0 && req.Requested != len(req.Original):
		return "size mismatch"
	}
	return ""
}

// warn logs at most once per warnInterval so a persistent fault cannot
// flood the log from the audio thread
func (m *Mixer) warn(msg string, fields ...zap.Field) {
	now := time.Now().UnixNano()
	last := m.lastWarn.Load()
	if now-last < int64(warnInterval) || !m.lastWarn.CompareAndSwap(last, now) {
		return
	}
	m.logger.Warn(msg, fields...)
}

func clamp(v float64) int16 {
	if v >= audio.MaxInt16 {
		return audio.MaxInt16
	}
	if v <= audio.MinInt16 {
		return audio.MinInt16
	}
	return int16(v)
}

// SetGate opens or closes the music source. A closed gate makes Process
// a passthrough and leaves buffered music untouched.
func (m *Mixer) SetGate(open bool) {
	m.gate.Store(open)
}

// GateOpen reports whether music is being mixed
func (m *Mixer) GateOpen() bool {
	return m.gate.Load()
}

// SetMusicVolume sets the music gain. Values outside [0, 1] are allowed:
// large gains clip and negative gains invert the signal. NaN and infinite
// gains are stored as 0.
func (m *Mixer) SetMusicVolume(v float64) {
	m.musicGain.Store(math.Float64bits(sanitize(v)))
}

// SetOriginalVolume sets the capture gain with the same rules as SetMusicVolume
func (m *Mixer) SetOriginalVolume(v float64) {
	m.originalGain.Store(math.Float64bits(sanitize(v)))
}

// MusicVolume returns the current music gain
func (m *Mixer) MusicVolume() float64 {
	return math.Float64frombits(m.musicGain.Load())
}

// OriginalVolume returns the current capture gain
func (m *Mixer) OriginalVolume() float64 {
	return math.Float64frombits(m.originalGain.Load())
}

// GainOrder returns the configured gain application point
func (m *Mixer) GainOrder() GainOrder {
	return m.cfg.GainOrder
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Stats returns a snapshot of the mixer counters
func (m *Mixer) Stats() Stats {
	return Stats{
		Cycles:        m.cycles.Load(),
		Mixed:         m.mixed.Load(),
		Gated:         m.gated.Load(),
		Passthrough:   m.passthrough.Load(),
		Underruns:     m.underruns.Load(),
		UnderrunBytes: m.underrunBytes.Load(),
		Contended:     m.contended.Load(),
	}
}

// Clock returns the current capture and music frame positions
func (m *Mixer) Clock() Clock {
	return Clock{
		CaptureFrames:      m.captureFrames.Load(),
		CaptureTimestampNs: m.captureTs.Load(),
		MusicFrames:        m.musicFrames.Load(),
		MusicTimestampNs:   m.musicTs.Load(),
	}
}

// ResetMusicClock zeroes the music frame counter, e.g. after stop or seek
func (m *Mixer) ResetMusicClock() {
	m.musicFrames.Store(0)
	m.musicTs.Store(0)
}
