// ABOUTME: Playback session controller owning the music ring and mixer
// ABOUTME: Drives track preparation and transport transitions for the UI and remote layers
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/downmix"
	"github.com/dipak140/oboe-music-player/pkg/audio/mixer"
	"github.com/dipak140/oboe-music-player/pkg/audio/resample"
	"github.com/dipak140/oboe-music-player/pkg/audio/ring"
	"github.com/dipak140/oboe-music-player/pkg/latency"
	"go.uber.org/zap"
)

// TrackHandle identifies a track registered with Load
type TrackHandle int

// NoTrack is the handle reported before any track is initialised
const NoTrack TrackHandle = -1

// Config holds session configuration
type Config struct {
	// Format is the device format the music is prepared to
	Format           audio.Format
	RingBufferMs     int
	PrebufferMs      int
	ChunkMs          int
	ProducerInterval time.Duration
	ProgressInterval time.Duration
	Mixer            mixer.Config
}

// DefaultConfig returns a 48kHz mono session with a two second ring
func DefaultConfig() Config {
	return Config{
		Format:           audio.PCM16(48000, 1),
		RingBufferMs:     2000,
		PrebufferMs:      200,
		ChunkMs:          20,
		ProducerInterval: 10 * time.Millisecond,
		ProgressInterval: 50 * time.Millisecond,
		Mixer:            mixer.DefaultConfig(),
	}
}

// Validate checks the configuration is usable
func (c Config) Validate() error {
	if err := c.Format.Validate(); err != nil {
		return fmt.Errorf("session format: %w", err)
	}
	if c.ChunkMs <= 0 {
		return fmt.Errorf("chunk_ms must be positive, got %d", c.ChunkMs)
	}
	if c.RingBufferMs < 2*c.ChunkMs {
		return fmt.Errorf("ring_buffer_ms %d must hold at least two %dms chunks", c.RingBufferMs, c.ChunkMs)
	}
	if c.PrebufferMs < 0 || c.PrebufferMs > c.RingBufferMs {
		return fmt.Errorf("prebuffer_ms %d must be between 0 and ring_buffer_ms %d", c.PrebufferMs, c.RingBufferMs)
	}
	if c.ProducerInterval <= 0 || c.ProgressInterval <= 0 {
		return fmt.Errorf("producer and progress intervals must be positive")
	}
	return nil
}

// Snapshot is a consistent view of the session for observers
type Snapshot struct {
	State          State
	Track          TrackHandle
	TrackName      string
	PositionMs     int64
	DurationMs     int64
	Looping        bool
	Pan            float64
	BufferedBytes  int
	MusicVolume    float64
	OriginalVolume float64
}

// Session is the playback session controller. It is the only writer of
// the music ring; the mixer it owns is the only reader.
type Session struct {
	cfg    Config
	logger *zap.Logger
	ring   *ring.Buffer
	mixer  *mixer.Mixer

	chunkBytes     int
	prebufferBytes int
	scratch        []byte

	mu      sync.Mutex
	state   State
	tracks  []*audio.Track
	current TrackHandle
	pcm     []byte
	looping bool
	pan     float64

	// Byte offset of the next write into pcm
	offset int
	// Position the counters below are relative to
	base     int64
	produced int64
	loops    int

	captureBase int64
	// Capture frame count when the gate last closed for a pause
	pausedAt int64

	cancel context.CancelFunc
	done   chan struct{}

	obsMu      sync.RWMutex
	onState    []func(from, to State)
	onProgress []func(positionMs, durationMs int64)
}

// New creates a session with its ring buffer and mixer
func New(cfg Config, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ringBytes := cfg.Format.BytesFor(time.Duration(cfg.RingBufferMs) * time.Millisecond)
	buf, err := ring.New(ringBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create music ring: %w", err)
	}

	mixCfg := cfg.Mixer
	mixCfg.Channels = cfg.Format.Channels

	chunk := cfg.Format.BytesFor(time.Duration(cfg.ChunkMs) * time.Millisecond)

	return &Session{
		cfg:            cfg,
		logger:         logger.Named("session"),
		ring:           buf,
		mixer:          mixer.New(buf, mixCfg, logger),
		chunkBytes:     chunk,
		prebufferBytes: cfg.Format.BytesFor(time.Duration(cfg.PrebufferMs) * time.Millisecond),
		scratch:        make([]byte, chunk),
		state:          Idle,
		current:        NoTrack,
	}, nil
}

// Mixer returns the mixer the audio device should drive
func (s *Session) Mixer() *mixer.Mixer {
	return s.mixer
}

// Format returns the session's device format
func (s *Session) Format() audio.Format {
	return s.cfg.Format
}

// OnStateChange registers an observer called after every transition.
// Observers run outside the session lock and may call back into the session.
func (s *Session) OnStateChange(fn func(from, to State)) {
	s.obsMu.Lock()
	s.onState = append(s.onState, fn)
	s.obsMu.Unlock()
}

// OnProgress registers an observer called periodically while playing
func (s *Session) OnProgress(fn func(positionMs, durationMs int64)) {
	s.obsMu.Lock()
	s.onProgress = append(s.onProgress, fn)
	s.obsMu.Unlock()
}

func (s *Session) notify(events []transition) {
	if len(events) == 0 {
		return
	}
	s.obsMu.RLock()
	observers := append([]func(from, to State){}, s.onState...)
	s.obsMu.RUnlock()

	for _, ev := range events {
		for _, fn := range observers {
			fn(ev.from, ev.to)
		}
	}
}

// setState must be called with mu held
func (s *Session) setState(to State) transition {
	ev := transition{from: s.state, to: to}
	s.state = to
	s.logger.Info("state change", zap.Stringer("from", ev.from), zap.Stringer("to", to))
	return ev
}

// Load registers a decoded track and returns its handle. Loading a track
// that is already registered returns its existing handle.
func (s *Session) Load(t *audio.Track) (TrackHandle, error) {
	if t == nil {
		return NoTrack, fmt.Errorf("nil track")
	}
	if err := t.Format.Validate(); err != nil {
		return NoTrack, fmt.Errorf("track %q: %w", t.Name, err)
	}
	if len(t.PCM)%t.Format.FrameSize() != 0 {
		return NoTrack, fmt.Errorf("track %q: %d bytes is not a whole number of frames", t.Name, len(t.PCM))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, loaded := range s.tracks {
		if loaded == t {
			return TrackHandle(i), nil
		}
	}

	s.tracks = append(s.tracks, t)
	h := TrackHandle(len(s.tracks) - 1)
	s.logger.Info("track loaded",
		zap.Int("handle", int(h)),
		zap.String("name", t.Name),
		zap.Stringer("format", t.Format),
		zap.Int64("duration_ms", t.DurationMs()))
	return h, nil
}

// Unload releases a track so its PCM can be collected. The handle is not
// reused. The current track cannot be unloaded.
func (s *Session) Unload(h TrackHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h < 0 || int(h) >= len(s.tracks) || s.tracks[h] == nil {
		return fmt.Errorf("%w: %d", ErrUnknownTrack, h)
	}
	if h == s.current {
		return fmt.Errorf("%w: %d", ErrTrackInUse, h)
	}
	s.logger.Debug("track unloaded", zap.Int("handle", int(h)), zap.String("name", s.tracks[h].Name))
	s.tracks[h] = nil
	return nil
}

// Init prepares a loaded track for playback. Allowed from Idle, or from
// Ended which returns the session to Idle. On failure the state is unchanged.
func (s *Session) Init(h TrackHandle) error {
	s.mu.Lock()

	if err := checkTransition("init", s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	if h < 0 || int(h) >= len(s.tracks) || s.tracks[h] == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownTrack, h)
	}

	track := s.tracks[h]
	pcm, err := s.prepare(track)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to prepare track %q: %w", track.Name, err)
	}

	s.haltProducer()
	s.ring.Clear()
	s.resetPosition(0)
	s.pcm = pcm
	s.current = h

	var events []transition
	if s.state == Ended {
		events = append(events, s.setState(Idle))
	}
	s.mu.Unlock()

	s.notify(events)
	return nil
}

// prepare converts a track to the session format
func (s *Session) prepare(t *audio.Track) ([]byte, error) {
	pcm := t.PCM
	var err error

	switch {
	case t.Format.Channels == 2 && s.cfg.Format.Channels == 1:
		pcm, err = downmix.Stereo16ToMono(pcm, 1)
	case t.Format.Channels == 1 && s.cfg.Format.Channels == 2:
		pcm, err = downmix.MonoToStereo16(pcm)
	}
	if err != nil {
		return nil, err
	}

	if t.Format.SampleRate != s.cfg.Format.SampleRate {
		r := resample.New(t.Format.SampleRate, s.cfg.Format.SampleRate, s.cfg.Format.Channels)
		pcm, err = r.Bytes(pcm)
		if err != nil {
			return nil, err
		}
	}
	return pcm, nil
}

// Play starts playback from Idle, priming the ring before opening the
// gate, or continues from Paused.
func (s *Session) Play() error {
	s.mu.Lock()

	if err := checkTransition("play", s.state); err != nil {
		s.mu.Unlock()
		return err
	}

	var events []transition
	if s.state == Paused {
		s.skipPausedCapture()
		events = append(events, s.setState(Playing))
		s.mixer.SetGate(true)
		s.mu.Unlock()
		s.notify(events)
		return nil
	}

	if s.pcm == nil {
		s.mu.Unlock()
		return ErrNoTrack
	}

	events = append(events, s.setState(Buffering))
	s.fill(s.prebufferBytes)

	s.mixer.ResetMusicClock()
	s.captureBase = s.mixer.Clock().CaptureFrames
	s.startProducer()

	events = append(events, s.setState(Playing))
	s.mixer.SetGate(true)
	s.mu.Unlock()

	s.notify(events)
	return nil
}

// Pause stops the mixer consuming music. Buffered music and the position are kept.
func (s *Session) Pause() error {
	s.mu.Lock()
	if err := checkTransition("pause", s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	s.pausedAt = s.mixer.Clock().CaptureFrames
	s.mixer.SetGate(false)
	ev := s.setState(Paused)
	s.mu.Unlock()

	s.notify([]transition{ev})
	return nil
}

// Resume continues playback from Paused
func (s *Session) Resume() error {
	s.mu.Lock()
	if err := checkTransition("resume", s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	s.skipPausedCapture()
	ev := s.setState(Playing)
	s.mixer.SetGate(true)
	s.mu.Unlock()

	s.notify([]transition{ev})
	return nil
}

// skipPausedCapture moves captureBase past the capture frames counted while
// paused, so the recorder position only advances alongside the music.
// Must be called with mu held.
func (s *Session) skipPausedCapture() {
	s.captureBase += s.mixer.Clock().CaptureFrames - s.pausedAt
}

// Stop closes the gate, discards buffered music and returns to Idle.
// The gate is closed before anything else so the next device cycle
// already passes capture audio through. Stopping an idle session does nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	if err := checkTransition("stop", s.state); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.state == Idle {
		s.mu.Unlock()
		return nil
	}

	s.mixer.SetGate(false)
	done := s.haltProducer()
	s.ring.Clear()
	s.resetPosition(0)
	s.mixer.ResetMusicClock()
	ev := s.setState(Idle)
	s.mu.Unlock()

	if done != nil {
		<-done
	}
	s.notify([]transition{ev})
	return nil
}

// Close stops any active playback
func (s *Session) Close() error {
	return s.Stop()
}

// Seek moves playback to positionMs, clamped to the track length
func (s *Session) Seek(positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkTransition("seek", s.state); err != nil {
		return err
	}

	frameSize := s.cfg.Format.FrameSize()
	target := s.cfg.Format.MsToFrames(max(positionMs, 0)) * int64(frameSize)
	target = min(target, int64(len(s.pcm)))

	s.ring.Clear()
	s.resetPosition(target)
	s.logger.Debug("seek", zap.Int64("position_ms", positionMs), zap.Int64("offset", target))

	s.fill(s.prebufferBytes)
	return nil
}

// resetPosition must be called with mu held
func (s *Session) resetPosition(offset int64) {
	s.offset = int(offset)
	s.base = offset
	s.produced = 0
	s.loops = 0
}

// SetLooping controls whether the track restarts at its end
func (s *Session) SetLooping(loop bool) {
	s.mu.Lock()
	s.looping = loop
	s.mu.Unlock()
}

// SetPan sets the music balance in [-1, 1] for stereo sessions
func (s *Session) SetPan(pan float64) {
	s.mu.Lock()
	s.pan = max(-1, min(1, pan))
	s.mu.Unlock()
}

// SetMusicVolume sets the music gain used by the mixer
func (s *Session) SetMusicVolume(v float64) {
	s.mixer.SetMusicVolume(v)
}

// SetOriginalVolume sets the capture gain used by the mixer
func (s *Session) SetOriginalVolume(v float64) {
	s.mixer.SetOriginalVolume(v)
}

// State returns the current playback state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PositionMs returns the playback position of the music actually consumed
func (s *Session) PositionMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionMsLocked()
}

// DurationMs returns the prepared track length
func (s *Session) DurationMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationMsLocked()
}

func (s *Session) positionMsLocked() int64 {
	total := int64(len(s.pcm))
	if total == 0 {
		return 0
	}
	consumed := s.base + s.produced - int64(s.ring.Len())
	if s.loops > 0 {
		consumed %= total
	}
	consumed = max(0, min(consumed, total))
	return s.cfg.Format.FramesToMs(consumed / int64(s.cfg.Format.FrameSize()))
}

func (s *Session) durationMsLocked() int64 {
	return s.cfg.Format.FramesToMs(int64(len(s.pcm) / s.cfg.Format.FrameSize()))
}

// Snapshot returns the session state for display
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:          s.state,
		Track:          s.current,
		PositionMs:     s.positionMsLocked(),
		DurationMs:     s.durationMsLocked(),
		Looping:        s.looping,
		Pan:            s.pan,
		BufferedBytes:  s.ring.Len(),
		MusicVolume:    s.mixer.MusicVolume(),
		OriginalVolume: s.mixer.OriginalVolume(),
	}
	if s.current != NoTrack {
		snap.TrackName = s.tracks[s.current].Name
	}
	return snap
}

// LatencySample pairs the capture clock with the music clock, both
// counted from the moment playback started
func (s *Session) LatencySample() latency.Sample {
	s.mu.Lock()
	base := s.captureBase
	s.mu.Unlock()

	c := s.mixer.Clock()
	return latency.Sample{
		RecorderTimestampNs: c.CaptureTimestampNs,
		RecorderFramePos:    c.CaptureFrames - base,
		PlayerTimestampNs:   c.MusicTimestampNs,
		PlayerFramePos:      c.MusicFrames,
		SampleRate:          s.cfg.Format.SampleRate,
	}
}

// Ring exposes the music ring for stats
func (s *Session) Ring() *ring.Buffer {
	return s.ring
}
