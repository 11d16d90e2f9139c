package archive

import (
	"time"

	"github.com/sungmin-park/mempool-stream/internal/classify"
)

// Config contains configuration for the frame archiver.
type Config struct {
	// Channels to archive.
	Channels []classify.Channel

	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration

	// BufferSize is the capacity of the intake channel. Frames are
	// dropped when the archiver falls behind.
	BufferSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Channels:      []classify.Channel{classify.ChannelBlocks, classify.ChannelStats},
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    5000,
	}
}

// frameRow represents a row to be inserted into the frames table.
type frameRow struct {
	Channel    string
	ReceivedAt int64  // Microseconds
	Payload    []byte // JSONB: the raw frame
}

// Metrics holds counters for the archiver.
type Metrics struct {
	Inserts int64
	Dropped int64
	Errors  int64
	Flushes int64
}
