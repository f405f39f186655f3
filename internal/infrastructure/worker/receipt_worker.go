package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReceiptProcessor generates queued receipts
type ReceiptProcessor interface {
	ProcessPending(ctx context.Context, limit int) (processed, failed int, err error)
	RequeueInterrupted(ctx context.Context) (int, error)
}

// ReceiptWorkerConfig holds configuration for the receipt worker
type ReceiptWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultReceiptWorkerConfig returns default configuration
func DefaultReceiptWorkerConfig() ReceiptWorkerConfig {
	return ReceiptWorkerConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    10,
	}
}

// ReceiptWorkerStats is a point-in-time view of the worker
type ReceiptWorkerStats struct {
	Running        bool      `json:"running"`
	ProcessedCount int       `json:"processed_count"`
	FailedCount    int       `json:"failed_count"`
	LastProcessed  time.Time `json:"last_processed"`
	LastError      string    `json:"last_error,omitempty"`
}

// ReceiptWorker drains the receipt queue. It polls on an interval and wakes
// early when a receipt is requested.
type ReceiptWorker struct {
	config    ReceiptWorkerConfig
	processor ReceiptProcessor
	logger    *zap.Logger

	loop loop
	wake chan struct{}

	mu             sync.RWMutex
	processedCount int
	failedCount    int
	lastProcessed  time.Time
	lastError      error
}

// NewReceiptWorker creates a new receipt worker
func NewReceiptWorker(config ReceiptWorkerConfig, processor ReceiptProcessor, logger *zap.Logger) *ReceiptWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultReceiptWorkerConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultReceiptWorkerConfig().BatchSize
	}
	return &ReceiptWorker{
		config:    config,
		processor: processor,
		logger:    logger,
		wake:      make(chan struct{}, 1),
	}
}

// Start requeues receipts a previous run left half-generated and begins
// the polling loop
func (w *ReceiptWorker) Start(ctx context.Context) error {
	if w.loop.isRunning() {
		return fmt.Errorf("%s already running", w.Name())
	}
	if n, err := w.processor.RequeueInterrupted(ctx); err != nil {
		w.logger.Error("Failed to requeue interrupted receipts", zap.Error(err))
	} else if n > 0 {
		w.logger.Info("Interrupted receipts requeued", zap.Int("count", n))
	}
	if err := w.loop.start(ctx, w.Name(), w.pollLoop); err != nil {
		return err
	}
	w.logger.Info("ReceiptWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))
	return nil
}

// Stop gracefully terminates the worker
func (w *ReceiptWorker) Stop() error {
	if !w.loop.stop() {
		return nil
	}
	stats := w.Stats()
	w.logger.Info("ReceiptWorker stopped",
		zap.Int("processed_count", stats.ProcessedCount),
		zap.Int("failed_count", stats.FailedCount))
	return nil
}

// Name returns the worker name for identification
func (w *ReceiptWorker) Name() string {
	return "ReceiptWorker"
}

// Wake asks for a pass without waiting for the next tick. Wakes coalesce.
func (w *ReceiptWorker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *ReceiptWorker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return
		case <-ticker.C:
		case <-w.wake:
		}
		w.drain(ctx)
	}
}

// drain processes full batches until the queue is shorter than a batch
func (w *ReceiptWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, failed, err := w.processor.ProcessPending(ctx, w.config.BatchSize)

		w.mu.Lock()
		w.processedCount += processed
		w.failedCount += failed
		w.lastProcessed = time.Now()
		w.lastError = err
		w.mu.Unlock()

		if err != nil {
			w.logger.Error("Failed to process pending receipts", zap.Error(err))
			return
		}
		if processed+failed > 0 {
			w.logger.Info("Receipt batch processed",
				zap.Int("processed", processed),
				zap.Int("failed", failed))
		}
		if processed+failed < w.config.BatchSize {
			return
		}
	}
}

// Stats returns the worker counters
func (w *ReceiptWorker) Stats() ReceiptWorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := ReceiptWorkerStats{
		Running:        w.loop.isRunning(),
		ProcessedCount: w.processedCount,
		FailedCount:    w.failedCount,
		LastProcessed:  w.lastProcessed,
	}
	if w.lastError != nil {
		stats.LastError = w.lastError.Error()
	}
	return stats
}
