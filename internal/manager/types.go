package manager

import (
	"errors"
	"time"

	"github.com/sungmin-park/mempool-stream/internal/distribute"
	"github.com/sungmin-park/mempool-stream/internal/feed"
)

// Errors
var (
	ErrUnknownChannel = errors.New("unknown channel")
)

// Config configures the Manager.
type Config struct {
	URL string // Upstream WebSocket URL

	// Client settings, passed through to the feed client.
	HandshakeTimeout  time.Duration
	PingInterval      time.Duration
	PingTimeout       time.Duration
	WriteTimeout      time.Duration
	SendRetries       int
	SendBackoff       time.Duration
	MessageBufferSize int

	// Reconnection. Backoff for attempt n is min(2^n, MaxBackoff/BackoffUnit)
	// units; BackoffUnit exists so tests can compress time.
	MaxReconnectAttempts int
	BackoffUnit          time.Duration
	MaxBackoff           time.Duration
	ReplayTimeout        time.Duration

	// Distribution.
	HistorySize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:     10 * time.Second,
		PingInterval:         30 * time.Second,
		PingTimeout:          10 * time.Second,
		WriteTimeout:         5 * time.Second,
		SendRetries:          3,
		SendBackoff:          500 * time.Millisecond,
		MessageBufferSize:    1000,
		MaxReconnectAttempts: 10,
		BackoffUnit:          time.Second,
		MaxBackoff:           60 * time.Second,
		ReplayTimeout:        30 * time.Second,
		HistorySize:          1000,
	}
}

// applyDefaults fills zero fields so a partially populated Config stays
// usable.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.PingInterval == 0 {
		c.PingInterval = def.PingInterval
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = def.PingTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.SendRetries == 0 {
		c.SendRetries = def.SendRetries
	}
	if c.SendBackoff == 0 {
		c.SendBackoff = def.SendBackoff
	}
	if c.MessageBufferSize == 0 {
		c.MessageBufferSize = def.MessageBufferSize
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.BackoffUnit == 0 {
		c.BackoffUnit = def.BackoffUnit
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = def.MaxBackoff
	}
	if c.ReplayTimeout == 0 {
		c.ReplayTimeout = def.ReplayTimeout
	}
	if c.HistorySize == 0 {
		c.HistorySize = def.HistorySize
	}
}

func (c Config) clientConfig() feed.ClientConfig {
	return feed.ClientConfig{
		URL:              c.URL,
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		SendRetries:      c.SendRetries,
		SendBackoff:      c.SendBackoff,
		BufferSize:       c.MessageBufferSize,
	}
}

// Status is a point-in-time view of the manager, reported by Status().
// It always succeeds; background failures only ever surface here.
type Status struct {
	Connected         bool
	LastPing          time.Time
	ReconnectAttempts int
	Abandoned         bool
	ActiveChannels    int
	ActiveSubscribers int
	Distribution      distribute.EngineStats
}
