// ABOUTME: WebSocket client for the karaoke remote
// ABOUTME: Handles connection, hello, command sending and message routing
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dipak140/oboe-music-player/internal/remote"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const helloTimeout = 5 * time.Second

// ErrNotConnected is returned after Close or a dropped connection
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string
	// Monitor connects to the Opus stream instead of the control endpoint
	Monitor bool
}

// Client represents a connection to a karaoke remote server
type Client struct {
	config Config
	logger *zap.Logger
	conn   *websocket.Conn
	hello  remote.Hello
	mu     sync.RWMutex

	// Message channels
	States  chan remote.State
	Errors  chan remote.Error
	Packets chan []byte

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a client; Connect dials it
func New(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:  config,
		logger:  logger.Named("client"),
		States:  make(chan remote.State, 16),
		Errors:  make(chan remote.Error, 16),
		Packets: make(chan []byte, 100),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Connect dials the server and waits for its hello
func (c *Client) Connect(ctx context.Context) error {
	path := "/control"
	if c.config.Monitor {
		path = "/monitor"
	}
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: path}
	c.logger.Debug("connecting", zap.String("url", u.String()))

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	if err := conn.SetReadDeadline(time.Now().Add(helloTimeout)); err != nil {
		conn.Close()
		return err
	}
	var hello remote.Hello
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return fmt.Errorf("failed to read hello: %w", err)
	}
	if hello.Type != "hello" {
		conn.Close()
		return fmt.Errorf("expected hello, got %s", hello.Type)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.hello = hello
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("connected", zap.String("server", hello.Server), zap.String("version", hello.Version))
	go c.readMessages()
	return nil
}

// Hello returns the server greeting received by Connect
func (c *Client) Hello() remote.Hello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// Send writes one command
func (c *Client) Send(cmd remote.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}
	return c.conn.WriteJSON(cmd)
}

// Done is closed when the read loop exits
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readMessages() {
	defer close(c.done)
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.logger.Debug("read error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			select {
			case c.Packets <- data:
			default:
				c.logger.Debug("dropping monitor packet")
			}
		case websocket.TextMessage:
			c.handleJSONMessage(data)
		}
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		c.logger.Warn("failed to parse message", zap.Error(err))
		return
	}

	switch head.Type {
	case "state":
		var st remote.State
		if err := json.Unmarshal(data, &st); err != nil {
			c.logger.Warn("bad state message", zap.Error(err))
			return
		}
		select {
		case c.States <- st:
		case <-c.ctx.Done():
		}

	case "error":
		var e remote.Error
		if err := json.Unmarshal(data, &e); err != nil {
			c.logger.Warn("bad error message", zap.Error(err))
			return
		}
		select {
		case c.Errors <- e:
		case <-c.ctx.Done():
		}

	default:
		c.logger.Debug("unknown message type", zap.String("type", head.Type))
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.logger.Debug("connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
