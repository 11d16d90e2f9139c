package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sungmin-park/mempool-stream/internal/api"
)

// AddressSource provides the addresses to poll. The manager satisfies
// it with the currently tracked set.
type AddressSource interface {
	TrackedAddresses() []string
}

// SnapshotHandler receives fetched address snapshots.
type SnapshotHandler interface {
	HandleSnapshot(info api.AddressInfo) error
}

// SnapshotHandlerFunc is a function adapter for SnapshotHandler.
type SnapshotHandlerFunc func(api.AddressInfo) error

func (f SnapshotHandlerFunc) HandleSnapshot(info api.AddressInfo) error {
	return f(info)
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 15m)
	Concurrency int           // Max concurrent requests (default: 10)
	Timeout     time.Duration // Per-request timeout (default: 10s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    15 * time.Minute,
		Concurrency: 10,
		Timeout:     10 * time.Second,
	}
}

// Poller periodically fetches tracked-address stats via the REST API.
type Poller struct {
	cfg       Config
	client    *api.Client
	addresses AddressSource
	handler   SnapshotHandler
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller.
func New(cfg Config, client *api.Client, addresses AddressSource, handler SnapshotHandler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:       cfg,
		client:    client,
		addresses: addresses,
		handler:   handler,
		logger:    logger,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("address poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("address poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollAll()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollAll()
		}
	}
}

// pollAll fetches stats for all tracked addresses concurrently.
func (p *Poller) pollAll() {
	start := time.Now()

	addresses := p.addresses.TrackedAddresses()
	if len(addresses) == 0 {
		p.logger.Debug("no tracked addresses to poll")
		return
	}

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var fetched, errors atomic.Int64

	for _, address := range addresses {
		wg.Add(1)
		go func(address string) {
			defer wg.Done()

			// Acquire semaphore slot.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-p.ctx.Done():
				return
			}

			if err := p.pollAddress(address); err != nil {
				p.logger.Warn("failed to poll address",
					"address", address,
					"err", err,
				)
				errors.Add(1)
				return
			}

			fetched.Add(1)
		}(address)
	}

	wg.Wait()

	p.logger.Info("poll cycle complete",
		"addresses", len(addresses),
		"fetched", fetched.Load(),
		"errors", errors.Load(),
		"duration", time.Since(start),
	)
}

// pollAddress fetches and handles a single address snapshot.
func (p *Poller) pollAddress(address string) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	defer cancel()

	info, err := p.client.GetAddress(ctx, address)
	if err != nil {
		return err
	}

	if p.handler != nil {
		if err := p.handler.HandleSnapshot(*info); err != nil {
			return err
		}
	}

	return nil
}
