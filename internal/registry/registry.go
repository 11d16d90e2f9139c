package registry

import (
	"sort"
	"sync"

	"github.com/sungmin-park/mempool-stream/internal/classify"
)

// Registry is a bidirectional subscriber↔channel mapping. All methods
// are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	byClient  map[string]map[classify.Channel]struct{}
	byChannel map[classify.Channel]map[string]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		byClient:  make(map[string]map[classify.Channel]struct{}),
		byChannel: make(map[classify.Channel]map[string]struct{}),
	}
}

// Subscribe records the pairing and reports whether clientID is the
// first subscriber for the channel. Subscribing twice is a no-op.
func (r *Registry) Subscribe(clientID string, ch classify.Channel) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byClient[clientID] == nil {
		r.byClient[clientID] = make(map[classify.Channel]struct{})
	}
	r.byClient[clientID][ch] = struct{}{}

	if r.byChannel[ch] == nil {
		r.byChannel[ch] = make(map[string]struct{})
	}
	r.byChannel[ch][clientID] = struct{}{}

	return len(r.byChannel[ch]) == 1
}

// Unsubscribe removes the pairing and reports whether clientID was the
// last subscriber for the channel. Removing an absent pairing is a
// no-op and never reports last.
func (r *Registry) Unsubscribe(clientID string, ch classify.Channel) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeLocked(clientID, ch)
}

func (r *Registry) unsubscribeLocked(clientID string, ch classify.Channel) bool {
	subs, ok := r.byChannel[ch]
	if !ok {
		return false
	}
	if _, ok := subs[clientID]; !ok {
		return false
	}

	delete(subs, clientID)
	if len(subs) == 0 {
		delete(r.byChannel, ch)
	}

	if chans := r.byClient[clientID]; chans != nil {
		delete(chans, ch)
		if len(chans) == 0 {
			delete(r.byClient, clientID)
		}
	}

	return len(subs) == 0
}

// UnsubscribeAll removes every pairing for clientID and returns the
// channels that dropped to zero subscribers as a result.
func (r *Registry) UnsubscribeAll(clientID string) (vacated []classify.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chans := r.byClient[clientID]
	for ch := range chans {
		if r.unsubscribeLocked(clientID, ch) {
			vacated = append(vacated, ch)
		}
	}
	sortChannels(vacated)
	return vacated
}

// ActiveChannels returns the channels with at least one subscriber,
// sorted for deterministic replay.
func (r *Registry) ActiveChannels() []classify.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]classify.Channel, 0, len(r.byChannel))
	for ch := range r.byChannel {
		out = append(out, ch)
	}
	sortChannels(out)
	return out
}

// ChannelsOf returns the channels clientID subscribes to.
func (r *Registry) ChannelsOf(clientID string) []classify.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]classify.Channel, 0, len(r.byClient[clientID]))
	for ch := range r.byClient[clientID] {
		out = append(out, ch)
	}
	sortChannels(out)
	return out
}

// SubscribersOf returns the subscribers of a channel.
func (r *Registry) SubscribersOf(ch classify.Channel) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byChannel[ch]))
	for id := range r.byChannel[ch] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ChannelCount returns the number of active channels.
func (r *Registry) ChannelCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byChannel)
}

// ClientCount returns the number of subscribers with at least one channel.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byClient)
}

func sortChannels(chans []classify.Channel) {
	sort.Slice(chans, func(i, j int) bool { return chans[i] < chans[j] })
}
