package classify

import "strings"

// Channel names a category of upstream messages that can be subscribed to.
type Channel string

// Ordinary channels, requested upstream via a "want" frame.
const (
	ChannelBlocks        Channel = "blocks"
	ChannelMempoolBlocks Channel = "mempool-blocks"
	ChannelStats         Channel = "stats"
	ChannelLiveChart     Channel = "live-2h-chart"
)

// ChannelTrackAddress is the pseudo-channel address-bearing frames are
// classified under. It is never sent in a "want" frame; each tracked
// address is requested with its own track-address directive.
const ChannelTrackAddress Channel = "track-address"

const trackAddressPrefix = "track-address:"

// TrackAddressChannel returns the synthetic per-address channel name,
// e.g. "track-address:bc1q...".
func TrackAddressChannel(address string) Channel {
	return Channel(trackAddressPrefix + address)
}

// IsTrackAddress reports whether c is the address-tracking pseudo-channel
// or a member of the per-address family.
func (c Channel) IsTrackAddress() bool {
	return c == ChannelTrackAddress || strings.HasPrefix(string(c), trackAddressPrefix)
}

// TrackedAddress returns the address embedded in a per-address channel
// name, if any.
func (c Channel) TrackedAddress() (string, bool) {
	if !strings.HasPrefix(string(c), trackAddressPrefix) {
		return "", false
	}
	return string(c[len(trackAddressPrefix):]), true
}

// KnownChannel reports whether name is one of the ordinary channels or
// belongs to the track-address family.
func KnownChannel(name string) bool {
	switch Channel(name) {
	case ChannelBlocks, ChannelMempoolBlocks, ChannelStats, ChannelLiveChart:
		return true
	}
	return Channel(name).IsTrackAddress()
}
