package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no pong)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw frame bytes with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw frame bytes from the WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage returned
}

// WantFrame declares the full set of ordinary channels this client
// currently wants the upstream to emit.
type WantFrame struct {
	Action string   `json:"action"`
	Data   []string `json:"data"`
}

// NewWantFrame builds a want directive for the given channel names.
func NewWantFrame(channels []string) WantFrame {
	if channels == nil {
		channels = []string{}
	}
	return WantFrame{Action: "want", Data: channels}
}

// TrackAddressFrame requests address-specific event delivery. The
// protocol has no corresponding untrack directive; tracked addresses
// accumulate for the lifetime of a connection.
type TrackAddressFrame struct {
	Address string `json:"track-address"`
}

// ClientConfig configures a feed client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g. wss://mempool.space/api/v1/ws)
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingInterval     time.Duration // Liveness probe interval
	PingTimeout      time.Duration // Max silence after a probe before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	SendRetries      int           // Automatic send retries on transport closure
	SendBackoff      time.Duration // Base backoff between send retries (doubles per attempt)
	BufferSize       int           // Messages channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      10 * time.Second,
		WriteTimeout:     5 * time.Second,
		SendRetries:      3,
		SendBackoff:      500 * time.Millisecond,
		BufferSize:       1000,
	}
}
