// ABOUTME: Websocket remote for the karaoke session
// ABOUTME: Serves JSON transport control on /control and an Opus monitor stream on /monitor
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dipak140/oboe-music-player/internal/version"
	"github.com/dipak140/oboe-music-player/pkg/audio"
	"github.com/dipak140/oboe-music-player/pkg/audio/encode"
	"github.com/dipak140/oboe-music-player/pkg/audio/ring"
	"github.com/dipak140/oboe-music-player/pkg/session"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
	sendQueue     = 100

	// monitorBuffer is how much mixed audio may queue ahead of the encoder
	monitorBuffer = time.Second
)

var errSendBufferFull = errors.New("client send buffer full")

// Controller is the part of the session the remote drives
type Controller interface {
	Play() error
	Pause() error
	Resume() error
	Stop() error
	Seek(positionMs int64) error
	SetMusicVolume(v float64)
	SetOriginalVolume(v float64)
	Snapshot() session.Snapshot
	// Tracks returns the selectable track names and the index of the loaded one, or -1
	Tracks() ([]string, int)
	SelectTrack(index int) error
}

// Config holds server configuration
type Config struct {
	Addr string
	Name string
	// Monitor enables the Opus stream of the mixed output
	Monitor bool
	Format  audio.Format
	Bitrate int
}

// Server is the remote control and monitor server
type Server struct {
	config   Config
	logger   *zap.Logger
	ctrl     Controller
	upgrader websocket.Upgrader

	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener

	clients   map[string]*client
	clientsMu sync.RWMutex

	monitorRing    *ring.Blocking
	encoder        *encode.OpusEncoder
	monitorClients atomic.Int32

	stopOnce sync.Once
	wg       sync.WaitGroup
}

type client struct {
	id       string
	conn     *websocket.Conn
	monitor  bool
	sendChan chan any
}

// New creates a server. The monitor stream is disabled when Opus cannot
// encode the session rate.
func New(config Config, ctrl Controller, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("remote")

	s := &Server{
		config:  config,
		logger:  logger,
		ctrl:    ctrl,
		mux:     http.NewServeMux(),
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			// Remote is intended for the local network only
			CheckOrigin: func(r *http.Request) bool {
				if origin := r.Header.Get("Origin"); origin != "" {
					logger.Debug("accepting websocket origin", zap.String("origin", origin))
				}
				return true
			},
		},
	}

	if config.Monitor {
		if !encode.OpusSupportsRate(config.Format.SampleRate) {
			logger.Warn("monitor stream disabled, opus cannot encode this rate",
				zap.Int("rate", config.Format.SampleRate))
			s.config.Monitor = false
		} else {
			enc, err := encode.NewOpus(config.Format, config.Bitrate)
			if err != nil {
				return nil, fmt.Errorf("failed to create monitor encoder: %w", err)
			}
			rb, err := ring.NewBlocking(config.Format.BytesFor(monitorBuffer))
			if err != nil {
				return nil, fmt.Errorf("failed to create monitor buffer: %w", err)
			}
			s.encoder = enc
			s.monitorRing = rb
		}
	}

	s.mux.HandleFunc("/control", s.handleControl)
	if s.config.Monitor {
		s.mux.HandleFunc("/monitor", s.handleMonitor)
	}
	return s, nil
}

// Handler returns the HTTP handler serving both endpoints
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start listens on the configured address and starts the monitor encoder
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{Handler: s.mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()

	if s.config.Monitor {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.monitorLoop()
		}()
	}

	s.logger.Info("remote listening", zap.Stringer("addr", ln.Addr()), zap.Bool("monitor", s.config.Monitor))
	return nil
}

// Addr returns the listening address once started
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down and disconnects every client
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		if s.monitorRing != nil {
			s.monitorRing.Close()
		}
		if s.httpServer != nil {
			err = s.httpServer.Shutdown(ctx)
		}

		// Hijacked websocket connections are not closed by Shutdown
		s.clientsMu.RLock()
		for _, c := range s.clients {
			c.conn.Close()
		}
		s.clientsMu.RUnlock()

		s.wg.Wait()
		s.logger.Info("remote stopped")
	})
	return err
}

// Offer receives the mixed stream from the device. It drops audio while
// no monitor client is connected.
func (s *Server) Offer(pcm []byte) {
	if s.monitorRing == nil || s.monitorClients.Load() == 0 {
		return
	}
	s.monitorRing.Write(pcm)
}

// Broadcast sends the current session state to every control client
func (s *Server) Broadcast() {
	msg := s.state()

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		if c.monitor {
			continue
		}
		if err := s.send(c, msg); err != nil {
			s.logger.Debug("dropping state update", zap.String("client", c.id), zap.Error(err))
		}
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, false)
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, true)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, monitor bool) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		monitor:  monitor,
		sendChan: make(chan any, sendQueue),
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()
	if monitor {
		s.monitorClients.Add(1)
	}
	s.logger.Info("client connected",
		zap.String("client", c.id),
		zap.String("remote", r.RemoteAddr),
		zap.Bool("monitor", monitor))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.clientWriter(c)
	}()

	defer func() {
		if monitor {
			s.monitorClients.Add(-1)
		}
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.sendChan)
		<-writerDone
		s.logger.Info("client disconnected", zap.String("client", c.id))
	}()

	hello := Hello{
		Type:     "hello",
		ClientID: c.id,
		Server:   s.config.Name,
		Version:  version.Version,
	}
	if s.config.Monitor {
		hello.Monitor = &StreamInfo{
			Codec:      "opus",
			SampleRate: s.config.Format.SampleRate,
			Channels:   s.config.Format.Channels,
			FrameMs:    int(encode.OpusFrameDuration / time.Millisecond),
		}
	}
	_ = s.send(c, hello)
	if !monitor {
		_ = s.send(c, s.state())
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		if !monitor {
			s.handleCommand(c, data)
		}
	}
}

// clientWriter owns all writes to the connection
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			switch v := msg.(type) {
			case []byte:
				if err := c.conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					s.logger.Debug("binary write failed", zap.String("client", c.id), zap.Error(err))
					c.conn.Close()
					return
				}
			default:
				if err := c.conn.WriteJSON(v); err != nil {
					s.logger.Debug("json write failed", zap.String("client", c.id), zap.Error(err))
					c.conn.Close()
					return
				}
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (s *Server) handleCommand(c *client, data []byte) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		_ = s.send(c, Error{Type: "error", Error: fmt.Sprintf("invalid command: %v", err)})
		return
	}

	if err := s.apply(cmd); err != nil {
		s.logger.Info("command rejected", zap.String("client", c.id), zap.String("command", cmd.Type), zap.Error(err))
		_ = s.send(c, Error{Type: "error", Command: cmd.Type, Error: err.Error()})
		return
	}

	if cmd.Type == CmdState {
		_ = s.send(c, s.state())
		return
	}
	s.logger.Debug("command applied", zap.String("client", c.id), zap.String("command", cmd.Type))
	s.Broadcast()
}

func (s *Server) apply(cmd Command) error {
	switch cmd.Type {
	case CmdPlay:
		return s.ctrl.Play()
	case CmdPause:
		return s.ctrl.Pause()
	case CmdResume:
		return s.ctrl.Resume()
	case CmdStop:
		return s.ctrl.Stop()
	case CmdSeek:
		return s.ctrl.Seek(cmd.PositionMs)
	case CmdVolume:
		if cmd.Value < 0 || cmd.Value > 1 {
			return fmt.Errorf("volume %v out of range [0, 1]", cmd.Value)
		}
		switch cmd.Target {
		case TargetMusic:
			s.ctrl.SetMusicVolume(cmd.Value)
		case TargetOriginal:
			s.ctrl.SetOriginalVolume(cmd.Value)
		default:
			return fmt.Errorf("unknown volume target %q", cmd.Target)
		}
		return nil
	case CmdSelect:
		if cmd.Track == nil {
			return errors.New("select needs a track index")
		}
		return s.ctrl.SelectTrack(*cmd.Track)
	case CmdState:
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
}

func (s *Server) state() State {
	tracks, current := s.ctrl.Tracks()
	return stateMessage(s.ctrl.Snapshot(), tracks, current)
}

// send queues a message without blocking
func (s *Server) send(c *client, msg any) error {
	select {
	case c.sendChan <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (s *Server) broadcastBinary(packet []byte) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		if !c.monitor {
			continue
		}
		if err := s.send(c, packet); err != nil {
			s.logger.Debug("monitor client lagging, packet dropped", zap.String("client", c.id))
		}
	}
}

func (s *Server) monitorLoop() {
	frame := make([]byte, s.encoder.FrameBytes())
	for {
		if err := s.monitorRing.ReadFull(frame); err != nil {
			return
		}
		packet, err := s.encoder.Encode(frame)
		if err != nil {
			s.logger.Warn("monitor encode failed", zap.Error(err))
			continue
		}
		s.broadcastBinary(packet)
	}
}
