// ABOUTME: Karaoke engine orchestration
// ABOUTME: Coordinates device, session, recorder, remote and TUI over the application lifecycle
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dipak140/oboe-music-player/internal/config"
	"github.com/dipak140/oboe-music-player/internal/discovery"
	"github.com/dipak140/oboe-music-player/internal/recorder"
	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/dipak140/oboe-music-player/internal/ui"
	"github.com/dipak140/oboe-music-player/pkg/latency"
	"github.com/dipak140/oboe-music-player/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	latencyInterval   = 500 * time.Millisecond
	statusInterval    = 200 * time.Millisecond
	broadcastInterval = time.Second
)

// EngineParams holds dependencies for NewEngine.
type EngineParams struct {
	fx.In
	Cfg        *config.Config
	Opts       Options
	Logger     *zap.Logger
	Session    *session.Session
	Deck       *Deck
	Device     Device
	Recorder   *recorder.Recorder
	Remote     *remote.Server
	Tracker    *latency.Tracker
	Controls   *ui.Controls
	Program    *tea.Program
	Shutdowner fx.Shutdowner
}

// Engine represents the running karaoke application
type Engine struct {
	cfg      *config.Config
	opts     Options
	logger   *zap.Logger
	session  *session.Session
	deck     *Deck
	device   Device
	recorder *recorder.Recorder
	remote   *remote.Server
	mdns     *discovery.Advertiser
	tracker  *latency.Tracker
	controls *ui.Controls
	program  *tea.Program

	shutdowner   fx.Shutdowner
	shutdownOnce sync.Once

	lastBroadcast atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates the engine and subscribes it to session events
func NewEngine(p EngineParams) *Engine {
	e := &Engine{
		cfg:        p.Cfg,
		opts:       p.Opts,
		logger:     p.Logger.Named("engine"),
		session:    p.Session,
		deck:       p.Deck,
		device:     p.Device,
		recorder:   p.Recorder,
		remote:     p.Remote,
		tracker:    p.Tracker,
		controls:   p.Controls,
		program:    p.Program,
		shutdowner: p.Shutdowner,
	}

	e.session.OnStateChange(e.onStateChange)
	e.session.OnProgress(e.onProgress)
	return e
}

// Start opens the device and brings up every enabled surface
func (e *Engine) Start(ctx context.Context) error {
	e.device.AddTap(e.recorder)
	if e.remote != nil {
		e.device.AddTap(e.remote)
	}

	if err := e.device.Open(e.cfg.Device()); err != nil {
		return fmt.Errorf("open audio device: %w", err)
	}
	if err := e.device.Start(); err != nil {
		_ = e.device.Close()
		return fmt.Errorf("start audio device: %w", err)
	}

	if e.remote != nil {
		if err := e.remote.Start(); err != nil {
			e.closeDevice()
			return err
		}
		if e.cfg.Remote.MDNS {
			e.advertise()
		}
	}

	if e.cfg.Recording.Enabled {
		if _, err := e.recorder.Start(e.cfg.Recording.Dir); err != nil {
			e.logger.Error("failed to start recording", zap.Error(err))
		}
	}

	e.session.SetLooping(e.opts.Loop)
	switch tracks, _ := e.deck.Tracks(); {
	case e.opts.Track != "":
		if err := e.LoadTrack(e.opts.Track); err != nil {
			e.logger.Error("failed to load track", zap.String("path", e.opts.Track), zap.Error(err))
		} else if err := e.deck.Play(); err != nil {
			e.logger.Error("failed to start playback", zap.Error(err))
		}
	case len(tracks) > 0:
		if err := e.deck.SelectTrack(0); err != nil {
			e.logger.Error("failed to load first track", zap.String("track", tracks[0]), zap.Error(err))
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.goLoop(func() { e.latencyLoop(runCtx) })
	e.goLoop(func() { e.actionLoop(runCtx) })
	if e.program != nil {
		e.goLoop(func() { e.statusLoop(runCtx) })
		e.goLoop(func() { e.runUI(runCtx) })
	}

	e.logger.Info("engine started",
		zap.Stringer("format", e.cfg.Format()),
		zap.Bool("remote", e.remote != nil),
		zap.Bool("tui", e.program != nil))
	return nil
}

// Stop tears everything down in reverse order
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	if e.program != nil {
		e.program.Quit()
	}
	e.wg.Wait()

	if err := e.session.Close(); err != nil {
		e.logger.Warn("failed to stop session", zap.Error(err))
	}
	e.closeDevice()

	if e.recorder.Recording() {
		if path, err := e.recorder.Stop(); err != nil {
			e.logger.Error("failed to finish take", zap.Error(err))
		} else {
			e.logger.Info("take saved", zap.String("path", path))
		}
	}

	var errs []error
	if e.mdns != nil {
		errs = append(errs, e.mdns.Stop())
	}
	if e.remote != nil {
		errs = append(errs, e.remote.Stop(ctx))
	}
	return errors.Join(errs...)
}

func (e *Engine) closeDevice() {
	if err := e.device.Stop(); err != nil {
		e.logger.Warn("failed to stop device", zap.Error(err))
	}
	if err := e.device.Close(); err != nil {
		e.logger.Warn("failed to close device", zap.Error(err))
	}
}

func (e *Engine) advertise() {
	port := 0
	if addr, ok := e.remote.Addr().(*net.TCPAddr); ok {
		port = addr.Port
	}

	adv := discovery.NewAdvertiser(discovery.Config{Name: e.cfg.Remote.Name, Port: port}, e.logger)
	if err := adv.Start(); err != nil {
		// The remote still works by address without mDNS
		e.logger.Warn("mdns advertisement failed", zap.Error(err))
		return
	}
	e.mdns = adv
}

// LoadTrack decodes path through the library and initialises the session
// with it, stopping any current playback first
func (e *Engine) LoadTrack(path string) error {
	if err := e.deck.LoadPath(path); err != nil {
		return err
	}
	if e.remote != nil {
		e.remote.Broadcast()
	}
	return nil
}

// Handle applies one TUI action
func (e *Engine) Handle(a ui.Action) error {
	switch a.Kind {
	case ui.ActionPlay:
		return e.deck.Play()
	case ui.ActionPause:
		return e.session.Pause()
	case ui.ActionResume:
		return e.session.Resume()
	case ui.ActionStop:
		return e.session.Stop()
	case ui.ActionMusicVolume:
		e.session.SetMusicVolume(a.Value)
	case ui.ActionOriginalVolume:
		e.session.SetOriginalVolume(a.Value)
	case ui.ActionLoop:
		e.session.SetLooping(a.Value != 0)
	case ui.ActionSelectTrack:
		if err := e.deck.SelectTrack(int(a.Value)); err != nil {
			return err
		}
	case ui.ActionToggleRecording:
		return e.toggleRecording()
	default:
		return fmt.Errorf("unknown action %d", a.Kind)
	}

	if e.remote != nil {
		e.remote.Broadcast()
	}
	return nil
}

func (e *Engine) toggleRecording() error {
	switch {
	case !e.recorder.Recording():
		_, err := e.recorder.Start(e.cfg.Recording.Dir)
		return err
	case e.recorder.Paused():
		return e.recorder.Resume()
	default:
		return e.recorder.Pause()
	}
}

// Status collects a snapshot for the TUI
func (e *Engine) Status() ui.StatusMsg {
	snap := e.session.Snapshot()
	tracks, current := e.deck.Tracks()
	stats := e.session.Mixer().Stats()
	latencyMs, _, quality := e.tracker.Stats()

	msg := ui.StatusMsg{
		State:           snap.State.String(),
		Track:           snap.TrackName,
		Tracks:          tracks,
		TrackIndex:      current,
		PositionMs:      snap.PositionMs,
		DurationMs:      snap.DurationMs,
		Looping:         snap.Looping,
		MusicVolume:     snap.MusicVolume,
		OriginalVolume:  snap.OriginalVolume,
		Underruns:       stats.Underruns,
		Passthrough:     stats.Passthrough,
		LatencyMs:       latencyMs,
		Quality:         quality,
		Recording:       e.recorder.Recording(),
		RecordingPaused: e.recorder.Paused(),
		RecordedFrames:  e.recorder.Frames(),
	}
	if e.remote != nil {
		msg.RemoteClients = e.remote.ClientCount()
	}
	return msg
}

func (e *Engine) onStateChange(from, to session.State) {
	e.logger.Debug("session state", zap.Stringer("from", from), zap.Stringer("to", to))
	if to == session.Buffering {
		e.tracker.Reset()
	}
	if e.remote != nil {
		e.remote.Broadcast()
	}
}

// onProgress keeps remote position displays moving without flooding them
func (e *Engine) onProgress(positionMs, durationMs int64) {
	if e.remote == nil {
		return
	}
	now := time.Now().UnixNano()
	last := e.lastBroadcast.Load()
	if now-last < int64(broadcastInterval) || !e.lastBroadcast.CompareAndSwap(last, now) {
		return
	}
	e.remote.Broadcast()
}

func (e *Engine) goLoop(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// latencyLoop feeds clock samples to the tracker while music plays
func (e *Engine) latencyLoop(ctx context.Context) {
	ticker := time.NewTicker(latencyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.session.State() != session.Playing {
				continue
			}
			e.tracker.Process(e.session.LatencySample())
		case <-ctx.Done():
			return
		}
	}
}

// actionLoop applies TUI key presses
func (e *Engine) actionLoop(ctx context.Context) {
	for {
		select {
		case a := <-e.controls.Actions:
			if err := e.Handle(a); err != nil {
				e.logger.Warn("action failed", zap.Int("action", int(a.Kind)), zap.Error(err))
				if e.program != nil {
					e.program.Send(ui.ErrorMsg{Err: err})
				}
			}
		case <-e.controls.Quit:
			e.shutdown()
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) statusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.program.Send(e.Status())
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) runUI(ctx context.Context) {
	if _, err := e.program.Run(); err != nil {
		e.logger.Error("tui exited", zap.Error(err))
	}
	// Quit during Stop also ends Run; only a user exit asks for shutdown
	if ctx.Err() == nil {
		e.shutdown()
	}
}

func (e *Engine) shutdown() {
	e.shutdownOnce.Do(func() {
		if err := e.shutdowner.Shutdown(); err != nil {
			e.logger.Warn("shutdown request failed", zap.Error(err))
		}
	})
}
