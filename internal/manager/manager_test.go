package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sungmin-park/mempool-stream/internal/classify"
	"github.com/sungmin-park/mempool-stream/internal/distribute"
)

// mockUpstream is a test WebSocket server that records the control
// frames it receives and can push data frames or drop connections.
type mockUpstream struct {
	t      *testing.T
	server *httptest.Server

	reject atomic.Bool // refuse upgrades while set

	mu     sync.Mutex
	conns  []*websocket.Conn
	wants  [][]string // channel list of each want frame, in order
	tracks []string   // address of each track-address frame, in order
}

func newMockUpstream(t *testing.T) *mockUpstream {
	u := &mockUpstream{t: t}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u.reject.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}

		u.mu.Lock()
		u.conns = append(u.conns, conn)
		u.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			u.record(msg)
		}
	}))

	return u
}

func (u *mockUpstream) record(msg []byte) {
	var want struct {
		Action string   `json:"action"`
		Data   []string `json:"data"`
	}
	if err := json.Unmarshal(msg, &want); err == nil && want.Action == "want" {
		u.mu.Lock()
		u.wants = append(u.wants, want.Data)
		u.mu.Unlock()
		return
	}

	var track struct {
		Address string `json:"track-address"`
	}
	if err := json.Unmarshal(msg, &track); err == nil && track.Address != "" {
		u.mu.Lock()
		u.tracks = append(u.tracks, track.Address)
		u.mu.Unlock()
	}
}

func (u *mockUpstream) url() string {
	return "ws" + strings.TrimPrefix(u.server.URL, "http")
}

func (u *mockUpstream) wantFrames() [][]string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([][]string, len(u.wants))
	copy(out, u.wants)
	return out
}

func (u *mockUpstream) trackFrames() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.tracks))
	copy(out, u.tracks)
	return out
}

// resetRecorded clears recorded control frames, e.g. before a
// reconnect whose replay is under test.
func (u *mockUpstream) resetRecorded() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.wants = nil
	u.tracks = nil
}

// push writes a data frame on the most recent connection.
func (u *mockUpstream) push(raw string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.conns) == 0 {
		u.t.Fatal("push with no connection")
	}
	conn := u.conns[len(u.conns)-1]
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		u.t.Logf("push failed: %v", err)
	}
}

// dropConns closes every accepted connection.
func (u *mockUpstream) dropConns() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, conn := range u.conns {
		conn.Close()
	}
	u.conns = nil
}

func (u *mockUpstream) close() {
	u.dropConns()
	u.server.Close()
}

func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.SendBackoff = 10 * time.Millisecond
	cfg.BackoffUnit = time.Millisecond
	cfg.MaxBackoff = 50 * time.Millisecond
	cfg.HandshakeTimeout = time.Second
	return cfg
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestManager_FirstSubscriberTriggersWant(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelBlocks); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return len(upstream.wantFrames()) == 1 }) {
		t.Fatalf("want frames = %v, want exactly 1", upstream.wantFrames())
	}
	if got := upstream.wantFrames()[0]; len(got) != 1 || got[0] != "blocks" {
		t.Errorf("want frame = %v, want [blocks]", got)
	}

	// Second subscriber to the same channel sends nothing.
	if err := m.SubscribeChannel(ctx, "sub-2", classify.ChannelBlocks); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(upstream.wantFrames()); got != 1 {
		t.Errorf("want frames after duplicate subscribe = %d, want 1", got)
	}

	// A new channel re-declares the full ordinary set.
	if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelStats); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	if !waitFor(t, time.Second, func() bool { return len(upstream.wantFrames()) == 2 }) {
		t.Fatalf("want frames = %v, want 2", upstream.wantFrames())
	}
	if got := upstream.wantFrames()[1]; len(got) != 2 || got[0] != "blocks" || got[1] != "stats" {
		t.Errorf("want frame = %v, want [blocks stats]", got)
	}
}

func TestManager_SubscribeSameChannelTwiceIdempotent(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelBlocks); err != nil {
			t.Fatalf("SubscribeChannel failed: %v", err)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if got := len(upstream.wantFrames()); got != 1 {
		t.Errorf("want frames = %d, want 1", got)
	}
	if got := m.Status().ActiveChannels; got != 1 {
		t.Errorf("ActiveChannels = %d, want 1", got)
	}
}

func TestManager_LastUnsubscriberTriggersUnwant(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	for _, id := range []string{"sub-1", "sub-2", "sub-3"} {
		if err := m.SubscribeChannel(ctx, id, classify.ChannelBlocks); err != nil {
			t.Fatalf("SubscribeChannel failed: %v", err)
		}
	}

	waitFor(t, time.Second, func() bool { return len(upstream.wantFrames()) == 1 })
	upstream.resetRecorded()

	// First two unsubscribes are silent.
	for _, id := range []string{"sub-1", "sub-2"} {
		if err := m.UnsubscribeChannel(ctx, id, classify.ChannelBlocks); err != nil {
			t.Fatalf("UnsubscribeChannel failed: %v", err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(upstream.wantFrames()); got != 0 {
		t.Errorf("want frames after partial unsubscribe = %d, want 0", got)
	}

	// The last one revises the set to empty.
	if err := m.UnsubscribeChannel(ctx, "sub-3", classify.ChannelBlocks); err != nil {
		t.Fatalf("UnsubscribeChannel failed: %v", err)
	}
	if !waitFor(t, time.Second, func() bool { return len(upstream.wantFrames()) == 1 }) {
		t.Fatalf("want frames = %v, want 1", upstream.wantFrames())
	}
	if got := upstream.wantFrames()[0]; len(got) != 0 {
		t.Errorf("want frame = %v, want empty set", got)
	}
}

func TestManager_TrackAddress(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.TrackAddress(ctx, "sub-1", "bc1qexample"); err != nil {
		t.Fatalf("TrackAddress failed: %v", err)
	}

	if !waitFor(t, time.Second, func() bool { return len(upstream.trackFrames()) == 1 }) {
		t.Fatalf("track frames = %v, want 1", upstream.trackFrames())
	}
	if upstream.trackFrames()[0] != "bc1qexample" {
		t.Errorf("tracked address = %s, want bc1qexample", upstream.trackFrames()[0])
	}

	// Tracking is never gated on first-subscriber: a second subscriber
	// for the same address still sends the directive.
	if err := m.TrackAddress(ctx, "sub-2", "bc1qexample"); err != nil {
		t.Fatalf("TrackAddress failed: %v", err)
	}
	if !waitFor(t, time.Second, func() bool { return len(upstream.trackFrames()) == 2 }) {
		t.Errorf("track frames = %v, want 2", upstream.trackFrames())
	}

	// The synthetic channel never appears in want frames.
	time.Sleep(50 * time.Millisecond)
	for _, frame := range upstream.wantFrames() {
		for _, name := range frame {
			if strings.HasPrefix(name, "track-address") {
				t.Errorf("want frame leaked track-address channel: %v", frame)
			}
		}
	}

	if got := m.Status().ActiveChannels; got != 1 {
		t.Errorf("ActiveChannels = %d, want 1", got)
	}
}

func TestManager_UnsubscribeClient(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelBlocks); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelStats); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	if err := m.SubscribeChannel(ctx, "sub-2", classify.ChannelStats); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	if err := m.TrackAddress(ctx, "sub-1", "bc1qexample"); err != nil {
		t.Fatalf("TrackAddress failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return len(upstream.wantFrames()) == 2 })
	upstream.resetRecorded()

	if err := m.UnsubscribeClient(ctx, "sub-1"); err != nil {
		t.Fatalf("UnsubscribeClient failed: %v", err)
	}

	// blocks vacated, stats kept by sub-2: one want frame with [stats].
	if !waitFor(t, time.Second, func() bool { return len(upstream.wantFrames()) == 1 }) {
		t.Fatalf("want frames = %v, want 1", upstream.wantFrames())
	}
	if got := upstream.wantFrames()[0]; len(got) != 1 || got[0] != "stats" {
		t.Errorf("want frame = %v, want [stats]", got)
	}

	status := m.Status()
	if status.ActiveChannels != 1 {
		t.Errorf("ActiveChannels = %d, want 1", status.ActiveChannels)
	}
	if status.ActiveSubscribers != 1 {
		t.Errorf("ActiveSubscribers = %d, want 1", status.ActiveSubscribers)
	}
}

func TestManager_SubscribeUnknownChannel(t *testing.T) {
	m := New(testConfig("ws://127.0.0.1:1"), nil)

	err := m.SubscribeChannel(context.Background(), "sub-1", classify.Channel("orderbooks"))
	if err == nil {
		t.Fatal("expected error for unknown channel")
	}
	if m.Status().ActiveChannels != 0 {
		t.Error("unknown channel must not be registered")
	}
}

func TestManager_SubscribeConnectFailure(t *testing.T) {
	cfg := testConfig("ws://127.0.0.1:1") // nothing listens here
	cfg.SendRetries = 1

	m := New(cfg, nil)
	defer m.Disconnect()

	err := m.SubscribeChannel(context.Background(), "sub-1", classify.ChannelBlocks)
	if err == nil {
		t.Fatal("expected subscribe to fail when upstream is unreachable")
	}

	status := m.Status()
	if status.Connected {
		t.Error("expected Connected=false")
	}
	if status.ActiveChannels != 0 {
		t.Error("failed subscribe must not leave registry entries")
	}
}

func TestManager_ListenerReceivesFrames(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelBlocks); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}

	sink := make(chan distribute.Message, 8)
	m.AddListener(classify.ChannelBlocks, sink)
	defer m.RemoveListener(classify.ChannelBlocks, sink)

	upstream.push(`{"block": {"height": 800123}}`)
	upstream.push(`{"unrelated": true}`)

	select {
	case msg := <-sink:
		if msg.Channel != classify.ChannelBlocks || msg.Frame.Block.Height != 800123 {
			t.Errorf("unexpected message: %+v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for block frame")
	}

	// The unclassifiable frame reaches history but no listener.
	if !waitFor(t, time.Second, func() bool { return m.Status().Distribution.Received == 2 }) {
		t.Fatalf("Received = %d, want 2", m.Status().Distribution.Received)
	}
	if len(sink) != 0 {
		t.Error("unclassifiable frame reached the blocks listener")
	}
	if got := len(m.Recent(time.Now().Add(-time.Minute))); got != 2 {
		t.Errorf("Recent = %d messages, want 2", got)
	}
}

func TestManager_MalformedFrameDiscarded(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	upstream.push(`{"block": `)
	upstream.push(`{"block": {"height": 1}}`)

	// The malformed frame is dropped, the loop keeps going.
	if !waitFor(t, time.Second, func() bool { return m.Status().Distribution.Received == 1 }) {
		t.Fatalf("Received = %d, want 1", m.Status().Distribution.Received)
	}
}

func TestManager_ReconnectReplaysSubscriptions(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	m := New(testConfig(upstream.url()), nil)
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.SubscribeChannel(ctx, "sub-1", classify.ChannelBlocks); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	if err := m.SubscribeChannel(ctx, "sub-2", classify.ChannelStats); err != nil {
		t.Fatalf("SubscribeChannel failed: %v", err)
	}
	if err := m.TrackAddress(ctx, "sub-1", "bc1qexample"); err != nil {
		t.Fatalf("TrackAddress failed: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return len(upstream.wantFrames()) == 2 && len(upstream.trackFrames()) == 1
	})
	upstream.resetRecorded()

	upstream.dropConns()

	// The replay covers exactly the two ordinary channels in one want
	// frame, plus the tracked address, with no duplicates.
	if !waitFor(t, 3*time.Second, func() bool {
		return len(upstream.wantFrames()) >= 1 && len(upstream.trackFrames()) >= 1
	}) {
		t.Fatalf("replay missing: wants=%v tracks=%v", upstream.wantFrames(), upstream.trackFrames())
	}

	wants := upstream.wantFrames()
	if len(wants) != 1 {
		t.Fatalf("want frames = %v, want exactly 1", wants)
	}
	if got := wants[0]; len(got) != 2 || got[0] != "blocks" || got[1] != "stats" {
		t.Errorf("replayed want = %v, want [blocks stats]", got)
	}

	tracks := upstream.trackFrames()
	if len(tracks) != 1 || tracks[0] != "bc1qexample" {
		t.Errorf("replayed tracks = %v, want [bc1qexample]", tracks)
	}

	if !waitFor(t, time.Second, func() bool {
		s := m.Status()
		return s.Connected && s.ReconnectAttempts == 0 && !s.Abandoned
	}) {
		t.Errorf("status after reconnect = %+v", m.Status())
	}
}

func TestManager_AbandonedAfterMaxAttempts(t *testing.T) {
	upstream := newMockUpstream(t)

	cfg := testConfig(upstream.url())
	cfg.MaxReconnectAttempts = 3

	m := New(cfg, nil)
	defer m.Disconnect()

	if err := m.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Kill the upstream entirely so every retry fails.
	upstream.close()

	if !waitFor(t, 5*time.Second, func() bool { return m.Status().Abandoned }) {
		t.Fatalf("status = %+v, want abandoned", m.Status())
	}

	status := m.Status()
	if status.Connected {
		t.Error("expected Connected=false while abandoned")
	}
	if status.ReconnectAttempts != cfg.MaxReconnectAttempts {
		t.Errorf("ReconnectAttempts = %d, want %d", status.ReconnectAttempts, cfg.MaxReconnectAttempts)
	}

	// Abandoned is sticky: no further automatic attempts occur.
	time.Sleep(100 * time.Millisecond)
	if !m.Status().Abandoned {
		t.Error("abandoned state must persist until an explicit Connect")
	}
}

func TestManager_ExplicitConnectClearsAbandoned(t *testing.T) {
	upstream := newMockUpstream(t)
	defer upstream.close()

	cfg := testConfig(upstream.url())
	cfg.MaxReconnectAttempts = 1

	m := New(cfg, nil)
	defer m.Disconnect()

	ctx := context.Background()
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// Refuse upgrades so the single retry fails, then drop the live
	// connection to trigger the reconnect loop.
	upstream.reject.Store(true)
	upstream.dropConns()

	if !waitFor(t, 3*time.Second, func() bool { return m.Status().Abandoned }) {
		t.Fatalf("status = %+v, want abandoned", m.Status())
	}

	upstream.reject.Store(false)
	if err := m.Connect(ctx); err != nil {
		t.Fatalf("explicit Connect failed: %v", err)
	}

	status := m.Status()
	if status.Abandoned {
		t.Error("explicit Connect must clear the abandoned state")
	}
	if status.ReconnectAttempts != 0 {
		t.Errorf("ReconnectAttempts = %d, want 0", status.ReconnectAttempts)
	}
}

func TestManager_StatusBeforeConnect(t *testing.T) {
	m := New(testConfig("ws://127.0.0.1:1"), nil)

	status := m.Status()
	if status.Connected {
		t.Error("expected Connected=false before Connect")
	}
	if status.ActiveChannels != 0 || status.ActiveSubscribers != 0 {
		t.Errorf("unexpected registry counts: %+v", status)
	}
}
