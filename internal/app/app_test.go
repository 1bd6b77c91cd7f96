// ABOUTME: Tests for application wiring and engine orchestration
// ABOUTME: Runs the fx graph with a fake device and drives audio cycles by hand
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dipak140/oboe-music-player/internal/client"
	"github.com/dipak140/oboe-music-player/internal/device"
	"github.com/dipak140/oboe-music-player/internal/logging"
	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/dipak140/oboe-music-player/internal/ui"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/decode"
	"github.com/dipak140/oboe-music-player/pkg/audio/mixer"
	"github.com/dipak140/oboe-music-player/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const testRate = 44100

// fakeDevice runs mixer cycles on demand instead of from a driver thread
type fakeDevice struct {
	proc device.Processor

	mu      sync.Mutex
	cfg     device.Config
	taps    []device.Tap
	opened  bool
	started bool
	closed  bool
	openErr error
}

func (d *fakeDevice) AddTap(t device.Tap) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.taps = append(d.taps, t)
}

func (d *fakeDevice) Open(cfg device.Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return d.openErr
	}
	d.cfg = cfg
	d.opened = true
	return nil
}

func (d *fakeDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = true
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) Stats() device.Stats {
	return device.Stats{}
}

// cycle runs one 10ms period of silent capture through the mixer
func (d *fakeDevice) cycle() []byte {
	in := make([]byte, testRate/100*2)
	out := d.proc.Process(mixer.MixRequest{
		Original:           in,
		Requested:          len(in),
		Encoding:           audio.EncodingPCM16,
		Channels:           1,
		SampleRate:         testRate,
		CaptureTimestampNs: time.Now().UnixNano(),
	})

	d.mu.Lock()
	taps := append([]device.Tap(nil), d.taps...)
	d.mu.Unlock()
	for _, t := range taps {
		t.Offer(out)
	}
	return out
}

type fixture struct {
	dir    string
	track  string
	config string
}

// writeTrack writes a raw mono track holding value throughout
func writeTrack(t *testing.T, dir, name string, ms int, value int16) string {
	t.Helper()
	samples := make([]int16, testRate*ms/1000)
	for i := range samples {
		samples[i] = value
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, audio.Int16sToBytes(samples), 0o644))
	return path
}

func newFixture(t *testing.T, trackMs int) fixture {
	t.Helper()
	dir := t.TempDir()
	track := writeTrack(t, dir, "backing.raw", trackMs, 1000)

	config := filepath.Join(dir, "karaoke.yaml")
	body := fmt.Sprintf(`
audio:
  sample_rate: %d
  ring_buffer_ms: 500
  prebuffer_ms: 50
remote:
  enabled: false
recording:
  dir: %s
log_level: debug
`, testRate, filepath.Join(dir, "takes"))
	require.NoError(t, os.WriteFile(config, []byte(body), 0o644))

	return fixture{dir: dir, track: track, config: config}
}

func testModules(t *testing.T, dev *fakeDevice) []fx.Option {
	return []fx.Option{
		fx.Supply(zaptest.NewLogger(t)),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return logging.NewFxEventLogger(logger)
		}),
		ConfigModule,
		CoreModule,
		fx.Provide(func(s *session.Session) Device {
			dev.proc = s.Mixer()
			return dev
		}),
		RemoteModule,
		UIModule,
		EngineModule,
	}
}

func startApp(t *testing.T, opts Options, dev *fakeDevice) (*fxtest.App, *Engine) {
	t.Helper()
	var engine *Engine
	options := append([]fx.Option{fx.Supply(opts)}, testModules(t, dev)...)
	options = append(options, fx.Invoke(registerLifecycleHooks), fx.Populate(&engine))

	app := fxtest.New(t, options...)
	app.RequireStart()
	return app, engine
}

func TestRemoteFollowsSession(t *testing.T) {
	f := newFixture(t, 500)
	body, err := os.ReadFile(f.config)
	require.NoError(t, err)
	body = []byte(strings.Replace(string(body), "remote:\n  enabled: false\n",
		"remote:\n  enabled: true\n  addr: 127.0.0.1:0\n  mdns: false\n", 1))
	require.NoError(t, os.WriteFile(f.config, body, 0o644))

	dev := &fakeDevice{}
	app, engine := startApp(t, Options{ConfigPath: f.config, NoTUI: true}, dev)
	defer app.RequireStop()
	require.NotNil(t, engine.remote)
	assert.Len(t, dev.taps, 2)

	c := client.New(client.Config{ServerAddr: engine.remote.Addr().String()}, zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	waitState := func(want string) {
		t.Helper()
		for {
			select {
			case st := <-c.States:
				if st.State == want {
					return
				}
			case <-time.After(5 * time.Second):
				t.Fatalf("never saw state %s", want)
			}
		}
	}
	waitState("idle")

	require.NoError(t, engine.LoadTrack(f.track))
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionPlay}))
	waitState("playing")

	require.NoError(t, c.Send(remote.Command{Type: remote.CmdPause}))
	waitState("paused")
	assert.Equal(t, session.Paused, engine.session.State())

	require.NoError(t, c.Send(remote.SelectCommand(0)))
	waitState("idle")
	assert.Equal(t, "backing.raw", engine.Status().Track)
}

func TestModulesValidate(t *testing.T) {
	options := append([]fx.Option{fx.Supply(Options{NoTUI: true})}, Modules()...)
	options = append(options, fx.Invoke(registerLifecycleHooks))

	require.NoError(t, fx.ValidateApp(options...))
}

func TestStartPlaysTrackAndRecords(t *testing.T) {
	f := newFixture(t, 500)
	dev := &fakeDevice{}

	app, engine := startApp(t, Options{ConfigPath: f.config, Track: f.track, Record: true, NoTUI: true}, dev)

	assert.True(t, dev.opened)
	assert.True(t, dev.started)
	assert.Equal(t, testRate, dev.cfg.Format.SampleRate)
	assert.Len(t, dev.taps, 1, "recorder only while remote is disabled")

	status := engine.Status()
	assert.Equal(t, "playing", status.State)
	assert.Equal(t, "backing.raw", status.Track)
	assert.True(t, status.Recording)

	// A cycle that loses the ring lock to the producer emits silence
	cycles := 0
	require.Eventually(t, func() bool {
		cycles++
		got, err := audio.BytesToInt16s(dev.cycle())
		return err == nil && got[0] == 500
	}, 5*time.Second, time.Millisecond, "music at half gain over silence")

	app.RequireStop()
	assert.False(t, dev.started)
	assert.True(t, dev.closed)

	takes, err := filepath.Glob(filepath.Join(f.dir, "takes", "take-*.wav"))
	require.NoError(t, err)
	require.Len(t, takes, 1)

	take, err := decode.Load(takes[0])
	require.NoError(t, err)
	assert.Equal(t, int64(cycles*testRate/100), take.Frames())
}

func TestHandleActions(t *testing.T) {
	f := newFixture(t, 500)
	app, engine := startApp(t, Options{ConfigPath: f.config, NoTUI: true}, &fakeDevice{})
	defer app.RequireStop()

	assert.ErrorIs(t, engine.Handle(ui.Action{Kind: ui.ActionPlay}), session.ErrNoTrack)
	assert.ErrorIs(t, engine.Handle(ui.Action{Kind: ui.ActionPause}), session.ErrInvalidTransition)

	require.NoError(t, engine.LoadTrack(f.track))
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionPlay}))
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionPause}))
	assert.Equal(t, "paused", engine.Status().State)
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionResume}))
	assert.Equal(t, "playing", engine.Status().State)

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionMusicVolume, Value: 0.8}))
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionOriginalVolume, Value: 0.2}))
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionLoop, Value: 1}))

	status := engine.Status()
	assert.Equal(t, 0.8, status.MusicVolume)
	assert.Equal(t, 0.2, status.OriginalVolume)
	assert.True(t, status.Looping)

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionStop}))
	assert.Equal(t, "idle", engine.Status().State)

	assert.Error(t, engine.Handle(ui.Action{Kind: ui.ActionKind(99)}))
}

func TestToggleRecording(t *testing.T) {
	f := newFixture(t, 100)
	app, engine := startApp(t, Options{ConfigPath: f.config, NoTUI: true}, &fakeDevice{})
	defer app.RequireStop()

	assert.False(t, engine.Status().Recording)

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionToggleRecording}))
	assert.True(t, engine.Status().Recording)
	assert.False(t, engine.Status().RecordingPaused)

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionToggleRecording}))
	assert.True(t, engine.Status().RecordingPaused)

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionToggleRecording}))
	assert.False(t, engine.Status().RecordingPaused)
}

func TestPlayAfterEndRestartsTrack(t *testing.T) {
	f := newFixture(t, 100)
	dev := &fakeDevice{}
	app, engine := startApp(t, Options{ConfigPath: f.config, Track: f.track, NoTUI: true}, dev)
	defer app.RequireStop()

	require.Eventually(t, func() bool {
		dev.cycle()
		return engine.session.State() == session.Ended
	}, 5*time.Second, time.Millisecond)

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionPlay}))
	assert.Equal(t, session.Playing, engine.session.State())
	assert.Equal(t, int64(0), engine.session.PositionMs())
}

func TestLoadTrackStopsCurrentPlayback(t *testing.T) {
	f := newFixture(t, 500)
	app, engine := startApp(t, Options{ConfigPath: f.config, Track: f.track, NoTUI: true}, &fakeDevice{})
	defer app.RequireStop()
	require.Equal(t, session.Playing, engine.session.State())

	require.NoError(t, engine.LoadTrack(f.track))
	assert.Equal(t, session.Idle, engine.session.State())

	assert.Error(t, engine.LoadTrack(filepath.Join(f.dir, "missing.wav")))
}

func TestSelectTrackSwitchesBackingTrack(t *testing.T) {
	f := newFixture(t, 500)
	second := writeTrack(t, f.dir, "second.raw", 500, 3000)
	body, err := os.ReadFile(f.config)
	require.NoError(t, err)
	body = append(body, fmt.Sprintf("library:\n  tracks:\n    - %s\n    - %s\n", f.track, second)...)
	require.NoError(t, os.WriteFile(f.config, body, 0o644))

	dev := &fakeDevice{}
	app, engine := startApp(t, Options{ConfigPath: f.config, NoTUI: true}, dev)
	defer app.RequireStop()

	status := engine.Status()
	assert.Equal(t, "idle", status.State)
	assert.Equal(t, []string{"backing.raw", "second.raw"}, status.Tracks)
	assert.Equal(t, 0, status.TrackIndex)
	assert.Equal(t, "backing.raw", status.Track)
	first := engine.session.Snapshot().Track

	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionSelectTrack, Value: 1}))
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionPlay}))
	status = engine.Status()
	assert.Equal(t, "second.raw", status.Track)
	assert.Equal(t, 1, status.TrackIndex)

	require.Eventually(t, func() bool {
		got, err := audio.BytesToInt16s(dev.cycle())
		return err == nil && got[0] == 1500
	}, 5*time.Second, time.Millisecond, "second track at half gain")

	// Switching stops playback and releases the previous track
	require.NoError(t, engine.Handle(ui.Action{Kind: ui.ActionSelectTrack, Value: 0}))
	status = engine.Status()
	assert.Equal(t, "idle", status.State)
	assert.Equal(t, "backing.raw", status.Track)
	assert.ErrorIs(t, engine.session.Init(first), session.ErrUnknownTrack)

	hits, misses := engine.deck.library.Stats()
	assert.Equal(t, uint64(1), hits, "reselecting a track is served from the cache")
	assert.Equal(t, uint64(2), misses)

	assert.ErrorIs(t, engine.Handle(ui.Action{Kind: ui.ActionSelectTrack, Value: 5}), ErrNoSuchTrack)
	assert.Equal(t, 0, engine.Status().TrackIndex)
}

func TestStartFailsWhenDeviceCannotOpen(t *testing.T) {
	f := newFixture(t, 100)
	dev := &fakeDevice{openErr: errors.New("no duplex device")}

	options := append([]fx.Option{fx.Supply(Options{ConfigPath: f.config, NoTUI: true})}, testModules(t, dev)...)
	options = append(options, fx.Invoke(registerLifecycleHooks))
	app := fx.New(options...)
	require.NoError(t, app.Err())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := app.Start(ctx)
	assert.ErrorContains(t, err, "no duplex device")
}

func TestLoadConfigOverrides(t *testing.T) {
	f := newFixture(t, 100)

	cfg, err := loadConfig(Options{ConfigPath: f.config, LogFile: "/tmp/k.log", Record: true})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/k.log", cfg.LogFile)
	assert.True(t, cfg.Recording.Enabled)

	_, err = loadConfig(Options{ConfigPath: filepath.Join(f.dir, "nope.yaml")})
	assert.Error(t, err)
}

func TestNewUIHeadless(t *testing.T) {
	controls, program := newUI(Options{NoTUI: true})
	assert.NotNil(t, controls)
	assert.Nil(t, program)

	_, program = newUI(Options{})
	assert.NotNil(t, program)
}
