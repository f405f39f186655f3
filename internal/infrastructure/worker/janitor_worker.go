package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionSweeper closes idle wizard sessions
type SessionSweeper interface {
	Sweep(now time.Time) int
}

// CodePurger deletes expired verification codes
type CodePurger interface {
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// JanitorWorker periodically drops idle wizard sessions and expired codes.
// Either collaborator may be nil.
type JanitorWorker struct {
	interval time.Duration
	sessions SessionSweeper
	codes    CodePurger
	logger   *zap.Logger
	now      func() time.Time

	loop loop
}

// NewJanitorWorker creates a new janitor running every interval
func NewJanitorWorker(interval time.Duration, sessions SessionSweeper, codes CodePurger, logger *zap.Logger) *JanitorWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &JanitorWorker{
		interval: interval,
		sessions: sessions,
		codes:    codes,
		logger:   logger,
		now:      time.Now,
	}
}

// Start begins the sweep loop
func (w *JanitorWorker) Start(ctx context.Context) error {
	if err := w.loop.start(ctx, w.Name(), w.run); err != nil {
		return err
	}
	w.logger.Info("JanitorWorker started", zap.Duration("interval", w.interval))
	return nil
}

// Stop terminates the sweep loop
func (w *JanitorWorker) Stop() error {
	if w.loop.stop() {
		w.logger.Info("JanitorWorker stopped")
	}
	return nil
}

// Name returns the worker name for identification
func (w *JanitorWorker) Name() string {
	return "JanitorWorker"
}

func (w *JanitorWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *JanitorWorker) sweep(ctx context.Context) {
	now := w.now()

	if w.sessions != nil {
		if n := w.sessions.Sweep(now); n > 0 {
			w.logger.Info("Idle wizard sessions swept", zap.Int("count", n))
		}
	}

	if w.codes != nil {
		n, err := w.codes.Purge(ctx, now)
		if err != nil {
			w.logger.Error("Failed to purge verification codes", zap.Error(err))
			return
		}
		if n > 0 {
			w.logger.Info("Expired verification codes purged", zap.Int64("count", n))
		}
	}
}
