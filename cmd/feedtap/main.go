// feedtap connects to the mempool.space WebSocket and streams classified
// frames to the console.
// Usage: go run ./cmd/feedtap --channels blocks,stats --addresses bc1q...
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sungmin-park/mempool-stream/internal/classify"
	"github.com/sungmin-park/mempool-stream/internal/config"
	"github.com/sungmin-park/mempool-stream/internal/distribute"
	"github.com/sungmin-park/mempool-stream/internal/manager"
)

func main() {
	wsURL := flag.String("url", config.DefaultWSURL, "upstream WebSocket URL")
	channelsFlag := flag.String("channels", "blocks,stats", "comma-separated channels to subscribe")
	addressesFlag := flag.String("addresses", "", "comma-separated addresses to track")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg := manager.DefaultConfig()
	cfg.URL = *wsURL
	mgr := manager.New(cfg, logger)
	defer mgr.Disconnect()

	clientID := "feedtap-" + uuid.NewString()

	var channels []classify.Channel
	for _, name := range strings.Split(*channelsFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		channels = append(channels, classify.Channel(name))
	}

	sink := make(chan distribute.Message, 256)

	for _, ch := range channels {
		if err := mgr.SubscribeChannel(ctx, clientID, ch); err != nil {
			logger.Error("subscribe failed", "channel", ch, "error", err)
			os.Exit(1)
		}
		mgr.AddListener(ch, sink)
		logger.Info("subscribed", "channel", ch)
	}

	if *addressesFlag != "" {
		// Address events all arrive on the generic track-address channel.
		mgr.AddListener(classify.ChannelTrackAddress, sink)
		for _, addr := range strings.Split(*addressesFlag, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			if err := mgr.TrackAddress(ctx, clientID, addr); err != nil {
				logger.Error("track address failed", "address", addr, "error", err)
				os.Exit(1)
			}
			logger.Info("tracking", "address", addr)
		}
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := mgr.Status()
				logger.Info("stats",
					"connected", status.Connected,
					"channels", status.ActiveChannels,
					"received", status.Distribution.Received,
					"routed", status.Distribution.Routed,
					"unclassified", status.Distribution.Unclassified,
					"dropped", status.Distribution.Dropped,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown complete")
			return
		case msg := <-sink:
			printFrame(msg, *verbose)
		}
	}
}

func printFrame(msg distribute.Message, verbose bool) {
	if verbose {
		data, _ := json.MarshalIndent(msg.Frame.Raw, "", "  ")
		fmt.Printf("[%s] %s\n", strings.ToUpper(string(msg.Channel)), data)
		return
	}

	switch {
	case msg.Frame.Block != nil:
		b := msg.Frame.Block
		fmt.Printf("[BLOCK] height=%d id=%s txs=%d size=%d\n", b.Height, b.ID, b.TxCount, b.Size)
	case msg.Frame.MempoolBlocks != nil:
		fmt.Printf("[MEMPOOL-BLOCKS] projected=%d\n", len(msg.Frame.MempoolBlocks))
	case msg.Frame.MempoolInfo != nil:
		i := msg.Frame.MempoolInfo
		fmt.Printf("[STATS] count=%d vsize=%d total_fee=%d\n", i.Count, i.VSize, i.TotalFee)
	case msg.Frame.Address != nil:
		fmt.Printf("[ADDRESS] %s\n", *msg.Frame.Address)
	default:
		fmt.Printf("[%s] %s\n", strings.ToUpper(string(msg.Channel)), msg.Frame.Raw)
	}
}
