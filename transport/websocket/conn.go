package websocket

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/wricardo/rpsls/game/protocol"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Outbound messages queued before Send reports the writer as backed up.
	sendBufferSize = 16

	// Pushes queued for the consumer before the reader waits.
	pushBufferSize = 64
)

var (
	ErrAlreadyOpened  = errors.New("connection already opened")
	ErrNotOpen        = errors.New("connection not open")
	ErrClosed         = errors.New("connection closed")
	ErrSendBufferFull = errors.New("send buffer full")
)

// Config controls a Conn
type Config struct {
	URL    string
	Header http.Header

	// WriteWait bounds every write, including pings and the close frame
	WriteWait time.Duration

	// PongWait is the read deadline extended on every pong. Zero disables
	// the deadline so an idle game can wait indefinitely.
	PongWait time.Duration

	// PingPeriod is the keepalive interval. Zero disables pings.
	PingPeriod time.Duration

	MaxMessageSize int64
	SendBuffer     int
}

// DefaultConfig returns the keepalive and buffer settings used when a
// profile leaves them unset
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		WriteWait:      writeWait,
		PingPeriod:     pingPeriod,
		MaxMessageSize: maxMessageSize,
		SendBuffer:     sendBufferSize,
	}
}

// Conn owns the single duplex channel to the game server. It is opened at
// most once and never reconnects.
type Conn struct {
	cfg    Config
	dialer *websocket.Dialer
	logger zerolog.Logger

	conn   *websocket.Conn
	send   chan []byte
	pushes chan protocol.Push
	done   chan struct{}

	mu       sync.Mutex
	opened   bool
	closed   bool
	clean    bool
	closeErr error
	stopOnce sync.Once
}

// Option configures a Conn
type Option func(*Conn)

// WithLogger sets the connection logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// WithDialer replaces the default dialer
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// NewConn creates an unopened connection
func NewConn(cfg Config, opts ...Option) *Conn {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = writeWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = maxMessageSize
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = sendBufferSize
	}

	c := &Conn{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 15 * time.Second},
		logger: zerolog.Nop(),
		send:   make(chan []byte, cfg.SendBuffer),
		pushes: make(chan protocol.Push, pushBufferSize),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open dials the server, writes hello before anything else, and starts the
// read and write pumps
func (c *Conn) Open(ctx context.Context, hello protocol.Message) error {
	c.mu.Lock()
	if c.opened {
		c.mu.Unlock()
		return ErrAlreadyOpened
	}
	c.opened = true
	c.mu.Unlock()

	data, err := hello.Encode()
	if err != nil {
		c.stop(false, err)
		return fmt.Errorf("invalid handshake: %w", err)
	}

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		c.mu.Lock()
		closing := c.closed
		c.mu.Unlock()
		if closing {
			return ErrClosed
		}
		c.stop(false, err)
		return fmt.Errorf("failed to connect to %s: %w", c.cfg.URL, err)
	}
	c.mu.Lock()
	if c.closed {
		// Close ran while dialing
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info().Str("url", c.cfg.URL).Msg("connected")

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		c.stop(false, err)
		return fmt.Errorf("failed to send handshake: %w", err)
	}
	c.logger.Debug().Str("action", string(hello.Action)).Str("game_id", hello.GameID).Msg("handshake sent")

	go c.writePump()
	go c.readPump()
	return nil
}

// Send queues msg for the writer and returns immediately. There is no
// acknowledgement from the server.
func (c *Conn) Send(msg protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return ErrNotOpen
	}
	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Pushes is the ordered feed of decoded server pushes. It is closed when the
// connection ends.
func (c *Conn) Pushes() <-chan protocol.Push {
	return c.pushes
}

// Done is closed once the connection has been torn down
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Clean reports whether the connection ended with a graceful close. Only
// meaningful after Done is closed.
func (c *Conn) Clean() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clean
}

// Err returns the error that ended an unclean connection
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeErr
}

// Close sends a normal closure frame and tears the connection down
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	if conn == nil {
		// An Open still dialing sees this and drops its socket
		c.closed = true
	}
	c.mu.Unlock()

	if conn == nil {
		c.stop(true, nil)
		return nil
	}

	err := conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.cfg.WriteWait))
	c.stop(true, nil)
	conn.Close()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("failed to send close frame: %w", err)
	}
	return nil
}

// stop marks the connection finished exactly once
func (c *Conn) stop(clean bool, err error) {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.clean = clean
		c.closeErr = err
		c.mu.Unlock()
		close(c.done)
	})
}

// readPump delivers pushes in arrival order until the connection ends
func (c *Conn) readPump() {
	defer func() {
		close(c.pushes)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	if c.cfg.PongWait > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		c.conn.SetPongHandler(func(string) error {
			c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
			return nil
		})
	}

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		// A frame may batch several pushes separated by newlines
		for _, line := range bytes.Split(message, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			push, err := protocol.DecodePush(line)
			if err != nil {
				// Still an inbound message: deliver it empty so it counts
				c.logger.Warn().Err(err).Bytes("frame", line).Msg("ignoring malformed push")
			}
			select {
			case c.pushes <- push:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Conn) handleReadError(err error) {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info().Msg("server closed the connection")
		c.stop(true, nil)
		return
	}

	c.mu.Lock()
	closing := c.closed
	c.mu.Unlock()
	if closing {
		// Our own Close tore the socket down under the reader
		return
	}

	c.logger.Warn().Err(err).Msg("connection lost; no further updates will arrive")
	c.stop(false, err)
}

// writePump serializes outbound messages and keepalive pings
func (c *Conn) writePump() {
	var tick <-chan time.Time
	if c.cfg.PingPeriod > 0 {
		ticker := time.NewTicker(c.cfg.PingPeriod)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn().Err(err).Msg("write failed")
				c.stop(false, err)
				c.conn.Close()
				return
			}

		case <-tick:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.stop(false, err)
				c.conn.Close()
				return
			}
		}
	}
}
