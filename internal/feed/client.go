package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is the single upstream WebSocket connection.
type Client interface {
	// Connect establishes the connection. It is idempotent: callers
	// racing an in-flight attempt observe its result instead of opening
	// a duplicate connection. After transport loss Connect may be
	// called again; after Close it returns ErrAlreadyClosed.
	Connect(ctx context.Context) error

	// Close gracefully and permanently tears down the client. Idempotent.
	Close() error

	// Send serializes v as JSON and transmits it, connecting first if
	// needed. Transport closure mid-send is retried a bounded number of
	// times with exponential backoff before the failure propagates.
	Send(ctx context.Context, v any) error

	// Messages returns the channel of raw inbound frames. It stays open
	// across reconnects of the same client.
	Messages() <-chan TimestampedMessage

	// Errors returns the channel of connection faults (transport errors
	// and staleness). At most one fault is surfaced per connection.
	Errors() <-chan error

	// IsConnected returns the current connection state.
	IsConnected() bool

	// LastPing returns when the last liveness probe was sent.
	LastPing() time.Time
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	// Output channels, shared by every connection this client opens.
	messages chan TimestampedMessage
	errors   chan error

	// Write serialization
	writeMu sync.Mutex

	// State. mu is held across the dial so concurrent Connect calls
	// serialize on the same attempt.
	mu        sync.Mutex
	conn      *websocket.Conn
	stop      chan struct{} // closed when the current connection is torn down
	connected bool
	closed    bool
	lastProbe time.Time
	lastPong  time.Time
}

// NewClient creates a new feed client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
	}
}

// Connect establishes the WebSocket connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.connected && c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		c.connected = false
		return fmt.Errorf("dial upstream: %w", err)
	}

	stop := make(chan struct{})
	now := time.Now()
	c.conn = conn
	c.stop = stop
	c.connected = true
	c.lastProbe = now
	c.lastPong = now

	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		c.mu.Lock()
		c.lastPong = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop(conn, stop)
	go c.heartbeatLoop(conn, stop)

	c.logger.Debug("websocket connected", "url", c.cfg.URL)
	return nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	stop := c.stop
	c.conn = nil
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}

// Send serializes and transmits a control frame.
func (c *client) Send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	attempts := c.cfg.SendRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.cfg.SendBackoff

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if !c.IsConnected() {
			if err := c.Connect(ctx); err != nil {
				lastErr = err
				if err == ErrAlreadyClosed {
					return err
				}
				continue
			}
		}

		if err := c.write(data); err != nil {
			lastErr = err
			continue
		}

		c.logger.Debug("sent frame", "frame", string(data))
		return nil
	}

	return fmt.Errorf("send failed after %d attempts: %w", attempts, lastErr)
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.fail(conn, err)
		return err
	}
	return nil
}

// Messages returns the inbound frame channel.
func (c *client) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Errors returns the connection fault channel.
func (c *client) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// LastPing returns when the last liveness probe was sent.
func (c *client) LastPing() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastProbe
}

// fail tears down conn if it is still the current connection and
// surfaces err to the Errors channel.
func (c *client) fail(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.connected = false
	c.conn = nil
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	conn.Close()

	select {
	case c.errors <- err:
	default:
	}
}

// readLoop pulls frames off the wire until the connection dies.
func (c *client) readLoop(conn *websocket.Conn, stop chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Errors after Close or after a newer connection took over
			// are expected teardown noise.
			select {
			case <-stop:
				return
			default:
			}
			c.fail(conn, err)
			return
		}

		msg := TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		select {
		case c.messages <- msg:
		case <-stop:
			return
		default:
			c.logger.Warn("message buffer full, dropping frame")
		}
	}
}

// heartbeatLoop probes liveness and flags stale connections.
func (c *client) heartbeatLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	staleAfter := c.cfg.PingInterval + c.cfg.PingTimeout

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.cfg.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.Lock()
			c.lastProbe = time.Now()
			lastPong := c.lastPong
			c.mu.Unlock()

			if time.Since(lastPong) > staleAfter {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", staleAfter,
				)
				c.fail(conn, ErrStaleConnection)
				return
			}
		}
	}
}
