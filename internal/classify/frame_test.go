package classify

import (
	"testing"
)

func TestDecode_Block(t *testing.T) {
	f, err := Decode([]byte(`{"block": {"height": 800000}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, ok := f.Channel()
	if !ok {
		t.Fatal("expected frame to classify")
	}
	if ch != ChannelBlocks {
		t.Errorf("Channel = %s, want %s", ch, ChannelBlocks)
	}
	if f.Block == nil || f.Block.Height != 800000 {
		t.Errorf("Block = %+v, want height 800000", f.Block)
	}
}

func TestDecode_Stats(t *testing.T) {
	f, err := Decode([]byte(`{"mempoolInfo": {"count": 1500, "vsize": 900000}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, ok := f.Channel()
	if !ok || ch != ChannelStats {
		t.Errorf("Channel = %s (ok=%v), want %s", ch, ok, ChannelStats)
	}
	if f.MempoolInfo == nil || f.MempoolInfo.Count != 1500 || f.MempoolInfo.VSize != 900000 {
		t.Errorf("MempoolInfo = %+v, want count 1500 vsize 900000", f.MempoolInfo)
	}
}

func TestDecode_MempoolBlocks(t *testing.T) {
	f, err := Decode([]byte(`{"mempool-blocks": [{"nTx": 2000, "blockVSize": 999999.5}]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, ok := f.Channel()
	if !ok || ch != ChannelMempoolBlocks {
		t.Errorf("Channel = %s (ok=%v), want %s", ch, ok, ChannelMempoolBlocks)
	}
	if len(f.MempoolBlocks) != 1 || f.MempoolBlocks[0].NTx != 2000 {
		t.Errorf("MempoolBlocks = %+v", f.MempoolBlocks)
	}
}

func TestDecode_MempoolBlocks_Empty(t *testing.T) {
	// An empty projection list is still a mempool-blocks frame.
	f, err := Decode([]byte(`{"mempool-blocks": []}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, ok := f.Channel()
	if !ok || ch != ChannelMempoolBlocks {
		t.Errorf("Channel = %s (ok=%v), want %s", ch, ok, ChannelMempoolBlocks)
	}
}

func TestDecode_LiveChart(t *testing.T) {
	f, err := Decode([]byte(`{"live-2h-chart": {"added": 12, "count": 4}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, ok := f.Channel()
	if !ok || ch != ChannelLiveChart {
		t.Errorf("Channel = %s (ok=%v), want %s", ch, ok, ChannelLiveChart)
	}
}

func TestDecode_Address(t *testing.T) {
	f, err := Decode([]byte(`{"address": "bc1qexample", "transactions": []}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, ok := f.Channel()
	if !ok || ch != ChannelTrackAddress {
		t.Errorf("Channel = %s (ok=%v), want %s", ch, ok, ChannelTrackAddress)
	}
	if f.Address == nil || *f.Address != "bc1qexample" {
		t.Errorf("Address = %v, want bc1qexample", f.Address)
	}
}

func TestDecode_Unclassifiable(t *testing.T) {
	f, err := Decode([]byte(`{"unrelated": true}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if _, ok := f.Channel(); ok {
		t.Error("expected frame to stay unclassified")
	}
	if string(f.Raw) != `{"unrelated": true}` {
		t.Errorf("Raw = %s", f.Raw)
	}
}

func TestDecode_PriorityOrder(t *testing.T) {
	// A frame carrying multiple known keys classifies by the first rule.
	f, err := Decode([]byte(`{"address": "bc1q", "block": {"height": 1}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	ch, _ := f.Channel()
	if ch != ChannelBlocks {
		t.Errorf("Channel = %s, want %s", ch, ChannelBlocks)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := Decode([]byte(`{"block": `)); err == nil {
		t.Error("expected error for truncated frame")
	}
	if _, err := Decode([]byte(`{"block": "not-an-object"}`)); err == nil {
		t.Error("expected error for mistyped block payload")
	}
	if _, err := Decode([]byte(`{"address": {"not": "a string"}}`)); err == nil {
		t.Error("expected error for mistyped address payload")
	}
}

func TestTrackAddressChannel(t *testing.T) {
	ch := TrackAddressChannel("bc1qexample")
	if ch != "track-address:bc1qexample" {
		t.Errorf("TrackAddressChannel = %s", ch)
	}
	if !ch.IsTrackAddress() {
		t.Error("expected IsTrackAddress to be true")
	}

	addr, ok := ch.TrackedAddress()
	if !ok || addr != "bc1qexample" {
		t.Errorf("TrackedAddress = %s (ok=%v)", addr, ok)
	}

	if !ChannelTrackAddress.IsTrackAddress() {
		t.Error("expected bare pseudo-channel to be track-address")
	}
	if _, ok := ChannelTrackAddress.TrackedAddress(); ok {
		t.Error("bare pseudo-channel carries no address")
	}
	if ChannelBlocks.IsTrackAddress() {
		t.Error("blocks is not a track-address channel")
	}
}

func TestKnownChannel(t *testing.T) {
	for _, name := range []string{"blocks", "mempool-blocks", "stats", "live-2h-chart", "track-address:bc1q"} {
		if !KnownChannel(name) {
			t.Errorf("KnownChannel(%q) = false, want true", name)
		}
	}
	if KnownChannel("orderbooks") {
		t.Error(`KnownChannel("orderbooks") = true, want false`)
	}
}
