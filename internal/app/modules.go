// ABOUTME: fx modules wiring configuration, logging and the audio components
// ABOUTME: Each module provides one concern; tests swap the device and logger modules
package app

import (
	"context"

	"github.com/dipak140/oboe-music-player/internal/config"
	"github.com/dipak140/oboe-music-player/internal/device"
	"github.com/dipak140/oboe-music-player/internal/library"
	"github.com/dipak140/oboe-music-player/internal/logging"
	"github.com/dipak140/oboe-music-player/internal/recorder"
	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/dipak140/oboe-music-player/internal/ui"
	"github.com/dipak140/oboe-music-player/pkg/latency"
	"github.com/dipak140/oboe-music-player/pkg/session"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Device is the duplex audio device driving the mixer
type Device interface {
	AddTap(t device.Tap)
	Open(cfg device.Config) error
	Start() error
	Stop() error
	Close() error
	Stats() device.Stats
}

// ConfigModule loads the YAML config and applies command line overrides
var ConfigModule = fx.Module("config",
	fx.Provide(loadConfig),
)

// LoggerModule provides the root logger and routes fx events through it
var LoggerModule = fx.Module("logger",
	fx.Provide(newLogger),
)

// CoreModule provides the session and the components around it
var CoreModule = fx.Module("core",
	fx.Provide(
		newSession,
		newLibrary,
		newDeck,
		newRecorder,
		newTracker,
	),
)

// DeviceModule opens the real duplex device through malgo
var DeviceModule = fx.Module("device",
	fx.Provide(newDevice),
)

// RemoteModule provides the websocket server, nil when disabled
var RemoteModule = fx.Module("remote",
	fx.Provide(newRemote),
)

// UIModule provides the TUI program, nil when running headless
var UIModule = fx.Module("ui",
	fx.Provide(newUI),
)

// EngineModule ties the components together
var EngineModule = fx.Module("engine",
	fx.Provide(NewEngine),
)

// Modules returns every module in dependency order
func Modules() []fx.Option {
	return []fx.Option{
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return logging.NewFxEventLogger(logger)
		}),
		ConfigModule,
		LoggerModule,
		CoreModule,
		DeviceModule,
		RemoteModule,
		UIModule,
		EngineModule,
	}
}

func loadConfig(opts Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if opts.Record {
		cfg.Recording.Enabled = true
	}
	return cfg, nil
}

type loggerParams struct {
	fx.In
	Cfg  *config.Config
	Opts Options
	LC   fx.Lifecycle
}

func newLogger(p loggerParams) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:   p.Cfg.LogLevel,
		File:    p.Cfg.LogFile,
		Console: p.Opts.NoTUI,
	})
	if err != nil {
		return nil, err
	}

	p.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Syncing stderr fails on some terminals; nothing to act on
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}

func newSession(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) (*session.Session, error) {
	s, err := session.New(cfg.Session(), logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(s.Close))
	return s, nil
}

func newLibrary(cfg *config.Config, logger *zap.Logger) (*library.Library, error) {
	return library.New(cfg.Library.CacheSize, logger)
}

func newDeck(cfg *config.Config, s *session.Session, lib *library.Library, logger *zap.Logger) *Deck {
	return NewDeck(s, lib, cfg.Library.Tracks, logger)
}

func newRecorder(cfg *config.Config, logger *zap.Logger) (*recorder.Recorder, error) {
	return recorder.New(cfg.Format(), logger)
}

func newTracker(logger *zap.Logger) *latency.Tracker {
	return latency.NewTracker(logger)
}

func newDevice(s *session.Session, logger *zap.Logger) Device {
	return device.New(s.Mixer(), logger)
}

func newRemote(cfg *config.Config, deck *Deck, logger *zap.Logger) (*remote.Server, error) {
	if !cfg.Remote.Enabled {
		return nil, nil
	}
	return remote.New(cfg.RemoteServer(), deck, logger)
}

func newUI(opts Options) (*ui.Controls, *tea.Program) {
	controls := ui.NewControls()
	if opts.NoTUI {
		return controls, nil
	}
	return controls, ui.New(controls)
}
