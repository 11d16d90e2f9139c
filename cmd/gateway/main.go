package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sungmin-park/mempool-stream/internal/api"
	"github.com/sungmin-park/mempool-stream/internal/archive"
	"github.com/sungmin-park/mempool-stream/internal/classify"
	"github.com/sungmin-park/mempool-stream/internal/config"
	"github.com/sungmin-park/mempool-stream/internal/database"
	"github.com/sungmin-park/mempool-stream/internal/manager"
	"github.com/sungmin-park/mempool-stream/internal/poller"
	"github.com/sungmin-park/mempool-stream/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/gateway.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting gateway",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Mempool.WSURL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create API client
	apiClient := api.NewClient(
		cfg.Mempool.RestURL,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Mempool.Timeout),
		api.WithRetries(cfg.Mempool.MaxRetries, time.Second),
	)

	// Check upstream reachability
	logger.Info("checking upstream chain tip")
	tipHeight, err := apiClient.GetTipHeight(ctx)
	if err != nil {
		logger.Error("failed to reach mempool.space API", "error", err)
		os.Exit(1)
	}
	logger.Info("upstream reachable", "tip_height", tipHeight)

	// Create the feed manager
	mgr := manager.New(manager.Config{
		URL:                  cfg.Mempool.WSURL,
		PingInterval:         cfg.Feed.PingInterval,
		PingTimeout:          cfg.Feed.PingTimeout,
		WriteTimeout:         cfg.Feed.WriteTimeout,
		SendRetries:          cfg.Feed.SendRetries,
		SendBackoff:          cfg.Feed.SendBackoff,
		MessageBufferSize:    cfg.Feed.BufferSize,
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
		MaxBackoff:           cfg.Feed.MaxBackoff,
		ReplayTimeout:        cfg.Feed.ReplayTimeout,
		HistorySize:          cfg.Feed.HistorySize,
	}, logger)

	if err := mgr.Connect(ctx); err != nil {
		logger.Error("failed to connect to upstream feed", "error", err)
		os.Exit(1)
	}
	defer mgr.Disconnect()

	// Optional frame archiver
	if cfg.Archive.Enabled {
		logger.Info("connecting to archive database",
			"host", cfg.Archive.Database.Host,
			"database", cfg.Archive.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Archive.Database)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		channels := make([]classify.Channel, 0, len(cfg.Archive.Channels))
		for _, name := range cfg.Archive.Channels {
			channels = append(channels, classify.Channel(name))
		}
		arch := archive.NewWriter(archive.Config{
			Channels:      channels,
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, mgr, pool, logger)

		if err := arch.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			arch.Stop(shutdownCtx)
		}()
	}

	// Address snapshot poller: refreshes confirmed state for tracked
	// addresses between live events.
	addrPoller := poller.New(poller.Config{
		Interval:    cfg.Poller.Interval,
		Concurrency: cfg.Poller.Concurrency,
		Timeout:     cfg.Poller.Timeout,
	}, apiClient, mgr, poller.SnapshotHandlerFunc(func(info api.AddressInfo) error {
		logger.Info("address snapshot",
			"address", info.Address,
			"confirmed_balance", info.ConfirmedBalance(),
			"pending_balance", info.PendingBalance(),
			"txs", info.ChainStats.TxCount,
		)
		return nil
	}), logger)

	if err := addrPoller.Start(ctx); err != nil {
		logger.Error("failed to start address poller", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		addrPoller.Stop(shutdownCtx)
	}()

	// Status server
	statusServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: createStatusHandler(cfg.Server.Path, mgr),
	}

	go func() {
		logger.Info("starting status server", "port", cfg.Server.Port)
		if err := statusServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("status server error", "error", err)
		}
	}()

	logger.Info("gateway running",
		"instance_id", cfg.Instance.ID,
		"status_url", fmt.Sprintf("http://localhost:%d%s", cfg.Server.Port, cfg.Server.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	statusServer.Shutdown(shutdownCtx)

	logger.Info("gateway stopped")
}

// createStatusHandler serves health and connection status over HTTP.
func createStatusHandler(statusPath string, mgr *manager.Manager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := mgr.Status()

		health := struct {
			Status string `json:"status"`
		}{Status: "healthy"}

		if status.Abandoned {
			health.Status = "unhealthy"
		} else if !status.Connected {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc(statusPath, func(w http.ResponseWriter, r *http.Request) {
		status := mgr.Status()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"connected":          status.Connected,
			"last_ping":          status.LastPing,
			"reconnect_attempts": status.ReconnectAttempts,
			"abandoned":          status.Abandoned,
			"active_channels":    status.ActiveChannels,
			"active_subscribers": status.ActiveSubscribers,
			"distribution":       status.Distribution,
		})
	})

	return mux
}
