package distribute

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sungmin-park/mempool-stream/internal/classify"
)

// Message is one upstream frame with routing metadata.
type Message struct {
	Frame      *classify.Frame
	Channel    classify.Channel // zero value when unclassified
	Classified bool
	ReceivedAt time.Time
}

// EngineConfig configures the Distribution Engine.
type EngineConfig struct {
	HistorySize int // Bounded history ring capacity
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{HistorySize: 1000}
}

// EngineStats contains runtime statistics.
type EngineStats struct {
	Received       int64
	Routed         int64
	Unclassified   int64
	Dropped        int64 // non-blocking pushes refused by full listener queues
	HistoryLen     int
	HistoryDropped int64
	Listeners      int
}

// Engine fans inbound frames out to listener queues and the history ring.
type Engine struct {
	logger  *slog.Logger
	history *Ring[Message]

	mu        sync.Mutex
	listeners map[classify.Channel][]chan<- Message

	received     int64
	routed       int64
	unclassified int64
	dropped      int64
}

// NewEngine creates a Distribution Engine.
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger:    logger,
		history:   NewRing[Message](cfg.HistorySize),
		listeners: make(map[classify.Channel][]chan<- Message),
	}
}

// AddListener registers a consumer-owned sink for a channel. The same
// sink may be registered on several channels; multiple sinks per
// channel fan out independently.
func (e *Engine) AddListener(ch classify.Channel, sink chan<- Message) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[ch] = append(e.listeners[ch], sink)
}

// RemoveListener unregisters a previously added sink. Listeners are the
// consumer's responsibility: abandoned sinks are never collected here.
func (e *Engine) RemoveListener(ch classify.Channel, sink chan<- Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sinks := e.listeners[ch]
	for i, s := range sinks {
		if s == sink {
			e.listeners[ch] = append(sinks[:i:i], sinks[i+1:]...)
			break
		}
	}
	if len(e.listeners[ch]) == 0 {
		delete(e.listeners, ch)
	}
}

// Dispatch routes one frame: unconditionally into history, then to every
// listener of its channel with a non-blocking push.
func (e *Engine) Dispatch(msg Message) {
	e.history.Push(msg)

	e.mu.Lock()
	e.received++
	var sinks []chan<- Message
	if msg.Classified {
		sinks = append(sinks, e.listeners[msg.Channel]...)
	} else {
		e.unclassified++
	}
	e.mu.Unlock()

	var routed, dropped int64
	for _, sink := range sinks {
		select {
		case sink <- msg:
			routed++
		default:
			dropped++
			e.logger.Warn("listener queue full, dropping message",
				"channel", msg.Channel,
			)
		}
	}

	if routed > 0 || dropped > 0 {
		e.mu.Lock()
		e.routed += routed
		e.dropped += dropped
		e.mu.Unlock()
	}
}

// Recent returns history entries received at or after t, oldest first.
func (e *Engine) Recent(t time.Time) []Message {
	snapshot := e.history.Snapshot()
	out := snapshot[:0:0]
	for _, msg := range snapshot {
		if !msg.ReceivedAt.Before(t) {
			out = append(out, msg)
		}
	}
	return out
}

// History returns the full history buffer contents, oldest first.
func (e *Engine) History() []Message {
	return e.history.Snapshot()
}

// Stats returns current statistics.
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	listeners := 0
	for _, sinks := range e.listeners {
		listeners += len(sinks)
	}

	return EngineStats{
		Received:       e.received,
		Routed:         e.routed,
		Unclassified:   e.unclassified,
		Dropped:        e.dropped,
		HistoryLen:     e.history.Len(),
		HistoryDropped: e.history.Dropped(),
		Listeners:      listeners,
	}
}
