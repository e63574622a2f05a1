package storage

import (
	"context"
	"fmt"
	"time"

	"eco_gateway/internal/queue"
	"eco_gateway/internal/utils"
)

// UsageWriter receives batches of usage events. UsageRepository and the
// logging S3 sink implement it.
type UsageWriter interface {
	WriteUsage(ctx context.Context, events []*queue.Event) error
}

// UsageQueueWorker drains usage events into the configured writers
type UsageQueueWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	writers     []UsageWriter
	config      *queue.Config
	logger      *utils.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewUsageQueueWorker creates a new usage queue worker
func NewUsageQueueWorker(q queue.Queue, dlq queue.DeadLetterQueue, writers []UsageWriter, config *queue.Config) *UsageQueueWorker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &UsageQueueWorker{
		queue:       q,
		dlq:         dlq,
		writers:     writers,
		config:      config,
		logger:      utils.NewLogger("usage-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *UsageQueueWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *UsageQueueWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// run is the main worker loop
func (w *UsageQueueWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Usage worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Usage worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch hands one dequeued batch to every writer
func (w *UsageQueueWorker) processBatch(ctx context.Context) {
	events, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Failed to dequeue usage events", "error", err)
			w.sleep(ctx, time.Second) // Back off on error
		}
		return
	}

	if len(events) == 0 {
		return
	}

	w.logger.Debug("Processing usage batch", "count", len(events))

	for i, writer := range w.writers {
		if err := w.writeWithRetry(ctx, writer, events); err != nil {
			w.logger.Error("Failed to write usage batch", "writer", i, "count", len(events), "error", err)
		}
	}
}

// writeWithRetry writes a batch with exponential backoff. Exhausted batches
// are moved to the dead letter queue event by event.
func (w *UsageQueueWorker) writeWithRetry(ctx context.Context, writer UsageWriter, events []*queue.Event) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("Retrying usage batch", "attempt", attempt, "backoff", backoff)
			if !w.sleep(ctx, backoff) {
				break
			}
		}

		err := writer.WriteUsage(ctx, events)
		if err == nil {
			return nil
		}
		lastErr = err
		w.logger.Error("Failed to write usage events", "attempt", attempt, "error", err)
		if !utils.IsRecoverableError(err) {
			break
		}
	}

	if w.dlq != nil {
		for _, ev := range events {
			if err := w.dlq.Add(ctx, ev, lastErr); err != nil {
				w.logger.Error("Failed to add to dead letter queue", "event_id", ev.ID, "error", err)
			}
		}
		w.logger.Warn("Usage batch moved to DLQ", "count", len(events), "error", lastErr)
	}

	return fmt.Errorf("%w: %w", queue.ErrMaxRetriesExceeded, lastErr)
}

// sleep waits for d, returning false if the worker is stopping.
func (w *UsageQueueWorker) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.stopChan:
		return false
	case <-ctx.Done():
		return false
	}
}

// GetQueueLength returns the current queue length
func (w *UsageQueueWorker) GetQueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// GetDeadLetterItems returns items from the dead letter queue
func (w *UsageQueueWorker) GetDeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetterItem re-enqueues a failed event from the dead letter queue
func (w *UsageQueueWorker) RetryDeadLetterItem(ctx context.Context, id string) error {
	if w.dlq == nil {
		return fmt.Errorf("dead letter queue not configured")
	}

	items, err := w.dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list dead letter items: %w", err)
	}

	for _, dlItem := range items {
		if dlItem.ID != id {
			continue
		}
		if err := w.queue.Enqueue(ctx, dlItem.Event); err != nil {
			return fmt.Errorf("failed to re-enqueue event: %w", err)
		}
		if err := w.dlq.Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to remove from DLQ: %w", err)
		}
		return nil
	}

	return queue.ErrItemNotFound
}
