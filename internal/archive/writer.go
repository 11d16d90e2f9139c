package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sungmin-park/mempool-stream/internal/classify"
	"github.com/sungmin-park/mempool-stream/internal/distribute"
)

// Source is the subscription surface the archiver consumes from. The
// manager satisfies it.
type Source interface {
	SubscribeChannel(ctx context.Context, subscriberID string, channel classify.Channel) error
	UnsubscribeClient(ctx context.Context, subscriberID string) error
	AddListener(channel classify.Channel, sink chan<- distribute.Message)
	RemoveListener(channel classify.Channel, sink chan<- distribute.Message)
}

// Writer archives frames from selected channels to the frames table.
// It registers itself as one more subscriber on the source, so its
// channels stay wanted upstream for as long as it runs.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	source       Source
	subscriberID string
	input        chan distribute.Message

	db *pgxpool.Pool

	// Batching
	batch       []frameRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	metrics Metrics
}

// NewWriter creates a frame archiver.
func NewWriter(cfg Config, source Source, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:          cfg,
		logger:       logger,
		source:       source,
		subscriberID: "archive-" + uuid.NewString(),
		input:        make(chan distribute.Message, cfg.BufferSize),
		db:           db,
		batch:        make([]frameRow, 0, cfg.BatchSize),
	}
}

// Start subscribes to the configured channels and begins archiving.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	for _, ch := range w.cfg.Channels {
		if err := w.source.SubscribeChannel(ctx, w.subscriberID, ch); err != nil {
			return fmt.Errorf("subscribe %s: %w", ch, err)
		}
		w.source.AddListener(ch, w.input)
	}

	w.wg.Add(1)
	go w.consumeLoop()

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("archive writer started",
		"channels", w.cfg.Channels,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the archiver.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping archive writer")

	for _, ch := range w.cfg.Channels {
		w.source.RemoveListener(ch, w.input)
	}
	if err := w.source.UnsubscribeClient(ctx, w.subscriberID); err != nil {
		w.logger.Warn("archive unsubscribe failed", "error", err)
	}

	if w.cancel != nil {
		w.cancel()
	}
	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("archive writer stopped")
	case <-ctx.Done():
		w.logger.Warn("archive writer stop timed out")
	}

	// Final flush
	w.flush()

	return nil
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.metrics
}

// consumeLoop reads frames from the intake channel into batches.
func (w *Writer) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.input:
			w.handleMessage(msg)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush()
		}
	}
}

// handleMessage transforms and adds a frame to the batch.
func (w *Writer) handleMessage(msg distribute.Message) {
	row := w.transform(msg)

	w.batchMu.Lock()
	w.batch = append(w.batch, row)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush()
	}
}

// transform converts a distributed message to a frameRow.
func (w *Writer) transform(msg distribute.Message) frameRow {
	return frameRow{
		Channel:    string(msg.Channel),
		ReceivedAt: msg.ReceivedAt.UnixMicro(),
		Payload:    []byte(msg.Frame.Raw),
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush() {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]frameRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(batch); err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed frames",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch.
func (w *Writer) batchInsert(rows []frameRow) error {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO frames (channel, received_at, payload)
			VALUES ($1, $2, $3)
		`, r.Channel, r.ReceivedAt, r.Payload)
	}

	results := w.db.SendBatch(w.ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
