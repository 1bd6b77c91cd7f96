// ABOUTME: Tests for the remote WebSocket client
// ABOUTME: Runs a real remote server with a fake session behind it
package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSession struct {
	mu    sync.Mutex
	state session.State
}

func (f *fakeSession) set(s session.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	return nil
}

func (f *fakeSession) Play() error   { return f.set(session.Playing) }
func (f *fakeSession) Resume() error { return f.set(session.Playing) }
func (f *fakeSession) Stop() error   { return f.set(session.Idle) }

func (f *fakeSession) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != session.Playing {
		return &session.TransitionError{Op: "pause", From: f.state}
	}
	f.state = session.Paused
	return nil
}

func (f *fakeSession) Seek(int64) error          { return nil }
func (f *fakeSession) SetMusicVolume(float64)    {}
func (f *fakeSession) SetOriginalVolume(float64) {}

func (f *fakeSession) Tracks() ([]string, int) { return []string{"song.wav"}, 0 }
func (f *fakeSession) SelectTrack(int) error   { return nil }

func (f *fakeSession) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.Snapshot{State: f.state, TrackName: "song.wav"}
}

func startServer(t *testing.T, monitor bool) *remote.Server {
	t.Helper()
	s, err := remote.New(remote.Config{
		Addr:    "127.0.0.1:0",
		Name:    "Living Room",
		Monitor: monitor,
		Format:  audio.PCM16(48000, 1),
	}, &fakeSession{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func connect(t *testing.T, s *remote.Server, monitor bool) *Client {
	t.Helper()
	c := New(Config{ServerAddr: s.Addr().String(), Monitor: monitor}, zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Close)
	return c
}

func nextState(t *testing.T, c *Client) remote.State {
	t.Helper()
	select {
	case st := <-c.States:
		return st
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for state")
		return remote.State{}
	}
}

func TestConnectReadsHelloAndState(t *testing.T) {
	s := startServer(t, false)
	c := connect(t, s, false)

	hello := c.Hello()
	assert.Equal(t, "Living Room", hello.Server)
	assert.NotEmpty(t, hello.ClientID)
	assert.True(t, c.IsConnected())

	st := nextState(t, c)
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, "song.wav", st.Track)
}

func TestSendCommands(t *testing.T) {
	s := startServer(t, false)
	c := connect(t, s, false)
	nextState(t, c)

	require.NoError(t, c.Send(remote.Command{Type: remote.CmdPlay}))
	assert.Equal(t, "playing", nextState(t, c).State)

	require.NoError(t, c.Send(remote.Command{Type: remote.CmdPause}))
	assert.Equal(t, "paused", nextState(t, c).State)

	require.NoError(t, c.Send(remote.Command{Type: remote.CmdPause}))
	select {
	case e := <-c.Errors:
		assert.Equal(t, remote.CmdPause, e.Command)
		assert.NotEmpty(t, e.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an error reply")
	}
}

func TestMonitorPackets(t *testing.T) {
	s := startServer(t, true)
	c := connect(t, s, true)

	info := c.Hello().Monitor
	require.NotNil(t, info)
	assert.Equal(t, "opus", info.Codec)

	period := make([]byte, audio.PCM16(48000, 1).BytesFor(10*time.Millisecond))
	for i := 0; i < 4; i++ {
		s.Offer(period)
	}

	select {
	case pkt := <-c.Packets:
		assert.NotEmpty(t, pkt)
	case <-time.After(5 * time.Second):
		t.Fatal("expected a monitor packet")
	}
}

func TestClose(t *testing.T) {
	s := startServer(t, false)
	c := connect(t, s, false)

	c.Close()
	assert.False(t, c.IsConnected())
	assert.ErrorIs(t, c.Send(remote.Command{Type: remote.CmdPlay}), ErrNotConnected)

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("read loop did not exit")
	}
}

func TestServerStopEndsClient(t *testing.T) {
	s := startServer(t, false)
	c := connect(t, s, false)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client did not notice the server stopping")
	}
	assert.False(t, c.IsConnected())
}

func TestConnectFails(t *testing.T) {
	c := New(Config{ServerAddr: "127.0.0.1:1"}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, c.Connect(ctx))
	assert.False(t, c.IsConnected())
}
