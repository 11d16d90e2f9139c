package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultWSURL                = "wss://mempool.space/api/v1/ws"
	DefaultRestURL              = "https://mempool.space/api"
	DefaultAPITimeout           = 30 * time.Second
	DefaultMaxRetries           = 3
	DefaultPingInterval         = 30 * time.Second
	DefaultPingTimeout          = 10 * time.Second
	DefaultWriteTimeout         = 5 * time.Second
	DefaultSendRetries          = 3
	DefaultSendBackoff          = 500 * time.Millisecond
	DefaultFeedBufferSize       = 1000
	DefaultMaxReconnectAttempts = 10
	DefaultMaxBackoff           = 60 * time.Second
	DefaultReplayTimeout        = 30 * time.Second
	DefaultHistorySize          = 1000
	DefaultPollInterval         = 15 * time.Minute
	DefaultPollConcurrency      = 10
	DefaultPollTimeout          = 10 * time.Second
	DefaultBatchSize            = 500
	DefaultFlushInterval        = 1 * time.Second
	DefaultArchiveBufferSize    = 5000
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultServerPort           = 8080
	DefaultServerPath           = "/status"
)

func (c *GatewayConfig) applyDefaults() {
	// Mempool endpoint defaults
	if c.Mempool.WSURL == "" {
		c.Mempool.WSURL = DefaultWSURL
	}
	if c.Mempool.RestURL == "" {
		c.Mempool.RestURL = DefaultRestURL
	}
	if c.Mempool.Timeout == 0 {
		c.Mempool.Timeout = DefaultAPITimeout
	}
	if c.Mempool.MaxRetries == 0 {
		c.Mempool.MaxRetries = DefaultMaxRetries
	}

	// Feed defaults
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.SendRetries == 0 {
		c.Feed.SendRetries = DefaultSendRetries
	}
	if c.Feed.SendBackoff == 0 {
		c.Feed.SendBackoff = DefaultSendBackoff
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}
	if c.Feed.MaxReconnectAttempts == 0 {
		c.Feed.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Feed.MaxBackoff == 0 {
		c.Feed.MaxBackoff = DefaultMaxBackoff
	}
	if c.Feed.ReplayTimeout == 0 {
		c.Feed.ReplayTimeout = DefaultReplayTimeout
	}
	if c.Feed.HistorySize == 0 {
		c.Feed.HistorySize = DefaultHistorySize
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}
	if c.Poller.Timeout == 0 {
		c.Poller.Timeout = DefaultPollTimeout
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultArchiveBufferSize
	}
	applyDBDefaults(&c.Archive.Database)

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Path == "" {
		c.Server.Path = DefaultServerPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
