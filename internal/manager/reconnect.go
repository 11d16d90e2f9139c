package manager

import (
	"context"
	"time"

	"github.com/sungmin-park/mempool-stream/internal/feed"
)

// maybeReconnect starts the reconnection loop for a faulted connection
// unless one is already running or automatic recovery has been
// abandoned.
func (m *Manager) maybeReconnect(client feed.Client, done chan struct{}) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.reconnecting || m.abandoned {
		return
	}
	m.reconnecting = true
	m.wg.Add(1)
	go m.reconnectLoop(client, done)
}

// reconnectLoop drives the faulted→retrying→stable cycle as a flat
// bounded loop. Each pass sleeps min(2^attempt, cap) backoff units,
// redials, and on success replays the active channel set. When the
// attempt budget is exhausted it parks in the abandoned state, which
// only an explicit Connect clears.
func (m *Manager) reconnectLoop(client feed.Client, done chan struct{}) {
	defer m.wg.Done()
	defer func() {
		m.stateMu.Lock()
		m.reconnecting = false
		m.stateMu.Unlock()
	}()

	for {
		m.stateMu.Lock()
		if m.attempts >= m.cfg.MaxReconnectAttempts {
			m.abandoned = true
			m.stateMu.Unlock()
			m.logger.Error("reconnect attempts exhausted, giving up",
				"attempts", m.cfg.MaxReconnectAttempts,
			)
			return
		}
		m.attempts++
		attempt := m.attempts
		m.stateMu.Unlock()

		wait := backoffDelay(attempt, m.cfg.BackoffUnit, m.cfg.MaxBackoff)
		m.logger.Info("reconnecting to upstream",
			"attempt", attempt,
			"backoff", wait,
		)

		select {
		case <-done:
			return
		case <-time.After(wait):
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
		err := client.Connect(ctx)
		cancel()
		if err != nil {
			m.logger.Warn("reconnect attempt failed",
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		if err := m.replaySubscriptions(client); err != nil {
			// Best-effort: a partial replay is repaired by the next
			// fault cycle or by explicit resubscription.
			m.logger.Warn("subscription replay incomplete", "error", err)
		}

		m.stateMu.Lock()
		m.attempts = 0
		m.stateMu.Unlock()

		m.logger.Info("reconnected, subscriptions replayed")
		return
	}
}

// replaySubscriptions re-declares the registry's active channel set on
// a fresh connection: one want frame covering every ordinary channel,
// plus a track-address directive per distinct tracked address.
func (m *Manager) replaySubscriptions(client feed.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.ReplayTimeout)
	defer cancel()

	var ordinary []string
	var addresses []string
	for _, ch := range m.registry.ActiveChannels() {
		if addr, ok := ch.TrackedAddress(); ok {
			addresses = append(addresses, addr)
			continue
		}
		if ch.IsTrackAddress() {
			// The bare pseudo-channel carries no address to replay.
			continue
		}
		ordinary = append(ordinary, string(ch))
	}

	if len(ordinary) > 0 {
		if err := client.Send(ctx, feed.NewWantFrame(ordinary)); err != nil {
			return err
		}
	}
	for _, addr := range addresses {
		if err := client.Send(ctx, feed.TrackAddressFrame{Address: addr}); err != nil {
			return err
		}
	}
	return nil
}

// backoffDelay computes the retry delay for the n-th attempt:
// min(2^attempt, max/unit) backoff units.
func backoffDelay(attempt int, unit, max time.Duration) time.Duration {
	if unit <= 0 {
		unit = time.Second
	}
	if attempt > 30 {
		attempt = 30
	}
	d := time.Duration(1<<uint(attempt)) * unit
	if max > 0 && d > max {
		d = max
	}
	return d
}
