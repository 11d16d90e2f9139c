package config

import "time"

// GatewayConfig is the root configuration for a gateway instance.
type GatewayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Mempool  MempoolConfig  `yaml:"mempool"`
	Feed     FeedConfig     `yaml:"feed"`
	Poller   PollerConfig   `yaml:"poller"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Server   ServerConfig   `yaml:"server"`
}

// InstanceConfig identifies this gateway.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// MempoolConfig holds mempool.space endpoint settings.
type MempoolConfig struct {
	WSURL      string        `yaml:"ws_url"`
	RestURL    string        `yaml:"rest_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// FeedConfig holds upstream connection and distribution settings.
type FeedConfig struct {
	PingInterval         time.Duration `yaml:"ping_interval"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	SendRetries          int           `yaml:"send_retries"`
	SendBackoff          time.Duration `yaml:"send_backoff"`
	BufferSize           int           `yaml:"buffer_size"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	MaxBackoff           time.Duration `yaml:"max_backoff"`
	ReplayTimeout        time.Duration `yaml:"replay_timeout"`
	HistorySize          int           `yaml:"history_size"`
}

// PollerConfig holds address snapshot poller settings.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ArchiveConfig holds frame archiving settings. Archiving is off unless
// enabled explicitly, and needs a database when it is.
type ArchiveConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Channels      []string      `yaml:"channels"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// ServerConfig holds the local HTTP status endpoint settings.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
