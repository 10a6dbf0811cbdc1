package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"apledger/internal/amqp"
)

// Consumer delivers sync messages until ctx is done.
type Consumer interface {
	ConsumeSync(ctx context.Context, h amqp.Handler) error
}

// Syncer copies the primary store to the mirror.
type Syncer interface {
	Handle(ctx context.Context, msg *amqp.SyncMessage) error
	SyncAll(ctx context.Context) error
}

// SyncWorker mirrors the primary store on every sync message, plus a full
// copy at startup and every interval to catch messages that never arrived.
// Copies never overlap: a message arriving during a periodic copy waits.
type SyncWorker struct {
	consumer Consumer
	syncer   Syncer
	interval time.Duration

	mu sync.Mutex
}

// NewSyncWorker creates a worker. An interval <= 0 disables the periodic copy.
func NewSyncWorker(consumer Consumer, syncer Syncer, interval time.Duration) *SyncWorker {
	return &SyncWorker{consumer: consumer, syncer: syncer, interval: interval}
}

// Run blocks until ctx is done or consumption fails.
func (w *SyncWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Performing startup sync")
	if err := w.syncAll(ctx); err != nil {
		// don't exit, the next message or tick retries
		slog.ErrorContext(ctx, "Startup sync failed", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if w.interval > 0 {
		go w.resyncLoop(ctx)
	}

	err := w.consumer.ConsumeSync(ctx, w.handle)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *SyncWorker) resyncLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.syncAll(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) handle(ctx context.Context, msg *amqp.SyncMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncer.Handle(ctx, msg)
}

func (w *SyncWorker) syncAll(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncer.SyncAll(ctx)
}
