package classify

import (
	"encoding/json"
	"fmt"
)

// BlockSummary is the payload of a "block" frame.
type BlockSummary struct {
	ID        string `json:"id"`
	Height    int64  `json:"height"`
	Timestamp int64  `json:"timestamp"`
	TxCount   int    `json:"tx_count"`
	Size      int64  `json:"size"`
	Weight    int64  `json:"weight"`
}

// MempoolBlock is one projected block in a "mempool-blocks" frame.
type MempoolBlock struct {
	BlockSize  int64     `json:"blockSize"`
	BlockVSize float64   `json:"blockVSize"`
	NTx        int       `json:"nTx"`
	TotalFees  int64     `json:"totalFees"`
	MedianFee  float64   `json:"medianFee"`
	FeeRange   []float64 `json:"feeRange"`
}

// MempoolInfo is the payload of a "mempoolInfo" frame.
type MempoolInfo struct {
	Count    int64 `json:"count"`
	VSize    int64 `json:"vsize"`
	TotalFee int64 `json:"total_fee"`
}

// Frame is the decoded form of one upstream message. At most one data
// field is set; Raw always holds the original payload.
type Frame struct {
	Block         *BlockSummary
	MempoolBlocks []MempoolBlock
	MempoolInfo   *MempoolInfo
	// LiveChart is kept opaque: the 2h chart payload shape varies
	// between mempool.space backend versions.
	LiveChart json.RawMessage
	Address   *string

	Raw json.RawMessage
}

// envelope mirrors the top-level keys the upstream uses to tag frames.
type envelope struct {
	Block         json.RawMessage `json:"block"`
	MempoolBlocks json.RawMessage `json:"mempool-blocks"`
	MempoolInfo   json.RawMessage `json:"mempoolInfo"`
	LiveChart     json.RawMessage `json:"live-2h-chart"`
	Address       json.RawMessage `json:"address"`
}

// Decode parses a raw upstream frame into its typed form. A frame with
// none of the known keys decodes successfully but stays unclassified.
func Decode(data []byte) (*Frame, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	f := &Frame{Raw: json.RawMessage(data)}

	if env.Block != nil {
		var b BlockSummary
		if err := json.Unmarshal(env.Block, &b); err != nil {
			return nil, fmt.Errorf("decode block payload: %w", err)
		}
		f.Block = &b
	}
	if env.MempoolBlocks != nil {
		var mb []MempoolBlock
		if err := json.Unmarshal(env.MempoolBlocks, &mb); err != nil {
			return nil, fmt.Errorf("decode mempool-blocks payload: %w", err)
		}
		if mb == nil {
			mb = []MempoolBlock{}
		}
		f.MempoolBlocks = mb
	}
	if env.MempoolInfo != nil {
		var mi MempoolInfo
		if err := json.Unmarshal(env.MempoolInfo, &mi); err != nil {
			return nil, fmt.Errorf("decode mempoolInfo payload: %w", err)
		}
		f.MempoolInfo = &mi
	}
	if env.LiveChart != nil {
		f.LiveChart = env.LiveChart
	}
	if env.Address != nil {
		var addr string
		if err := json.Unmarshal(env.Address, &addr); err != nil {
			return nil, fmt.Errorf("decode address payload: %w", err)
		}
		f.Address = &addr
	}

	return f, nil
}

// Channel classifies the frame. First matching rule wins; frames with
// none of the known keys return ok=false.
//
// Address-bearing frames all map to the generic track-address channel:
// the upstream does not echo back which tracked address a frame belongs
// to in a way that survives every message shape, so per-address routing
// is intentionally not attempted here.
func (f *Frame) Channel() (Channel, bool) {
	switch {
	case f.Block != nil:
		return ChannelBlocks, true
	case f.MempoolBlocks != nil:
		return ChannelMempoolBlocks, true
	case f.MempoolInfo != nil:
		return ChannelStats, true
	case f.LiveChart != nil:
		return ChannelLiveChart, true
	case f.Address != nil:
		return ChannelTrackAddress, true
	}
	return "", false
}
