package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sungmin-park/mempool-stream/internal/classify"
	"github.com/sungmin-park/mempool-stream/internal/distribute"
	"github.com/sungmin-park/mempool-stream/internal/feed"
	"github.com/sungmin-park/mempool-stream/internal/registry"
)

// Manager coordinates the upstream connection, the subscription
// registry and the distribution engine behind one public surface.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	registry *registry.Registry
	engine   *distribute.Engine

	// mu serializes the public operations: every subscribe/unsubscribe
	// is a read-modify-write over the registry plus an upstream side
	// effect, and connect/disconnect swap the client.
	mu          sync.Mutex
	client      feed.Client
	runDone     chan struct{}
	loopsActive bool

	// Reconnection state, observable via Status().
	stateMu      sync.Mutex
	attempts     int
	abandoned    bool
	reconnecting bool

	wg sync.WaitGroup
}

// New creates a Manager. It does not connect; Connect or the first
// subscribe establishes the upstream connection.
func New(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	return &Manager{
		cfg:      cfg,
		logger:   logger,
		registry: registry.New(),
		engine:   distribute.NewEngine(distribute.EngineConfig{HistorySize: cfg.HistorySize}, logger),
	}
}

// Connect establishes the upstream connection if it is not already
// live. An explicit call also recovers from the abandoned state.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

// Disconnect tears down the upstream connection and its background
// loops. Subscriptions stay registered; a later Connect starts fresh.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	close(m.runDone)
	err := m.client.Close()
	m.wg.Wait()

	m.client = nil
	m.runDone = nil
	m.loopsActive = false

	m.logger.Info("disconnected from upstream")
	return err
}

// SubscribeChannel records the pairing and, for the first subscriber of
// an ordinary channel, declares the new wanted set upstream.
func (m *Manager) SubscribeChannel(ctx context.Context, subscriberID string, channel classify.Channel) error {
	if !classify.KnownChannel(string(channel)) {
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectLocked(ctx); err != nil {
		return err
	}

	m.logger.Info("subscribing to channel", "subscriber", subscriberID, "channel", channel)

	first := m.registry.Subscribe(subscriberID, channel)
	if first && !channel.IsTrackAddress() {
		if err := m.sendWantLocked(ctx); err != nil {
			m.registry.Unsubscribe(subscriberID, channel)
			return fmt.Errorf("subscribe %s: %w", channel, err)
		}
	}
	return nil
}

// UnsubscribeChannel removes the pairing and, when the last subscriber
// of an ordinary channel leaves, declares the shrunken set upstream.
func (m *Manager) UnsubscribeChannel(ctx context.Context, subscriberID string, channel classify.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("unsubscribing from channel", "subscriber", subscriberID, "channel", channel)

	last := m.registry.Unsubscribe(subscriberID, channel)
	if last && !channel.IsTrackAddress() {
		if err := m.sendWantLocked(ctx); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", channel, err)
		}
	}
	return nil
}

// TrackAddress sends the track-address directive unconditionally (each
// tracked address is its own upstream directive) and records the
// pairing under the synthetic per-address channel.
func (m *Manager) TrackAddress(ctx context.Context, subscriberID, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.connectLocked(ctx); err != nil {
		return err
	}

	m.logger.Info("tracking address", "subscriber", subscriberID, "address", address)

	if err := m.client.Send(ctx, feed.TrackAddressFrame{Address: address}); err != nil {
		return fmt.Errorf("track address: %w", err)
	}

	m.registry.Subscribe(subscriberID, classify.TrackAddressChannel(address))
	return nil
}

// UnsubscribeClient removes every pairing for the subscriber. If any
// ordinary channel lost its last subscriber, one want frame with the
// remaining set covers all of them.
func (m *Manager) UnsubscribeClient(ctx context.Context, subscriberID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("unsubscribing client", "subscriber", subscriberID)

	vacated := m.registry.UnsubscribeAll(subscriberID)

	ordinaryVacated := false
	for _, ch := range vacated {
		if !ch.IsTrackAddress() {
			ordinaryVacated = true
			break
		}
	}
	if ordinaryVacated {
		if err := m.sendWantLocked(ctx); err != nil {
			return fmt.Errorf("unsubscribe client: %w", err)
		}
	}
	return nil
}

// AddListener registers a consumer-owned sink for live delivery on a
// channel.
func (m *Manager) AddListener(channel classify.Channel, sink chan<- distribute.Message) {
	m.engine.AddListener(channel, sink)
}

// RemoveListener unregisters a sink. Consumers must call this when they
// stop receiving; abandoned sinks are not collected.
func (m *Manager) RemoveListener(channel classify.Channel, sink chan<- distribute.Message) {
	m.engine.RemoveListener(channel, sink)
}

// Recent returns buffered messages received at or after t, oldest first.
func (m *Manager) Recent(t time.Time) []distribute.Message {
	return m.engine.Recent(t)
}

// TrackedAddresses returns the distinct addresses currently tracked by
// at least one subscriber, sorted.
func (m *Manager) TrackedAddresses() []string {
	var addresses []string
	for _, ch := range m.registry.ActiveChannels() {
		if addr, ok := ch.TrackedAddress(); ok {
			addresses = append(addresses, addr)
		}
	}
	return addresses
}

// Status reports the current connection and subscription state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	connected := m.client != nil && m.client.IsConnected()
	var lastPing time.Time
	if m.client != nil {
		lastPing = m.client.LastPing()
	}
	m.mu.Unlock()

	m.stateMu.Lock()
	attempts := m.attempts
	abandoned := m.abandoned
	m.stateMu.Unlock()

	return Status{
		Connected:         connected,
		LastPing:          lastPing,
		ReconnectAttempts: attempts,
		Abandoned:         abandoned,
		ActiveChannels:    m.registry.ChannelCount(),
		ActiveSubscribers: m.registry.ClientCount(),
		Distribution:      m.engine.Stats(),
	}
}

// connectLocked establishes the connection and starts the receive loop.
// Must be called with mu held.
func (m *Manager) connectLocked(ctx context.Context) error {
	if m.client == nil {
		m.client = feed.NewClient(m.cfg.clientConfig(), m.logger)
		m.runDone = make(chan struct{})
		m.loopsActive = false
	}

	if m.client.IsConnected() {
		return nil
	}

	if err := m.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect upstream: %w", err)
	}

	m.stateMu.Lock()
	m.attempts = 0
	m.abandoned = false
	m.stateMu.Unlock()

	if !m.loopsActive {
		m.loopsActive = true
		m.wg.Add(1)
		go m.receiveLoop(m.client, m.runDone)
	}

	m.logger.Info("connected to upstream", "url", m.cfg.URL)
	return nil
}

// sendWantLocked declares the full ordinary active-channel set upstream.
// Must be called with mu held.
func (m *Manager) sendWantLocked(ctx context.Context) error {
	if m.client == nil {
		// Nothing declared upstream yet, nothing to revise.
		return nil
	}

	var ordinary []string
	for _, ch := range m.registry.ActiveChannels() {
		if !ch.IsTrackAddress() {
			ordinary = append(ordinary, string(ch))
		}
	}
	return m.client.Send(ctx, feed.NewWantFrame(ordinary))
}

// receiveLoop decodes inbound frames into the distribution engine and
// turns connection faults into reconnection work. It runs from the
// first connect until Disconnect, surviving reconnects of the same
// client.
func (m *Manager) receiveLoop(client feed.Client, done chan struct{}) {
	defer m.wg.Done()

	for {
		select {
		case <-done:
			return

		case err := <-client.Errors():
			m.logger.Warn("upstream connection fault", "error", err)
			m.maybeReconnect(client, done)

		case msg := <-client.Messages():
			frame, err := classify.Decode(msg.Data)
			if err != nil {
				m.logger.Warn("discarding malformed frame", "error", err)
				continue
			}
			channel, ok := frame.Channel()
			m.engine.Dispatch(distribute.Message{
				Frame:      frame,
				Channel:    channel,
				Classified: ok,
				ReceivedAt: msg.ReceivedAt,
			})
		}
	}
}
