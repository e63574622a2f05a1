package billing

import (
	"context"
	"fmt"
	"time"

	"eco_gateway/internal/queue"
	"eco_gateway/internal/utils"
)

// AnonymousCaller is the billing identity for unauthenticated requests.
const AnonymousCaller = "anonymous"

// CallerID picks the billing identity of an event: API key, then user, then
// AnonymousCaller.
func CallerID(ev *queue.Event) string {
	switch {
	case ev.APIKeyID != "":
		return ev.APIKeyID
	case ev.UserID != "":
		return ev.UserID
	default:
		return AnonymousCaller
	}
}

// BillingQueueWorker applies usage events to the billing service
// asynchronously.
type BillingQueueWorker struct {
	queue       queue.Queue
	dlq         queue.DeadLetterQueue
	service     Service
	config      *queue.Config
	logger      *utils.Logger
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewBillingQueueWorker creates a new billing queue worker
func NewBillingQueueWorker(q queue.Queue, dlq queue.DeadLetterQueue, service Service, config *queue.Config) *BillingQueueWorker {
	if config == nil {
		config = queue.DefaultConfig("billing")
	}

	return &BillingQueueWorker{
		queue:       q,
		dlq:         dlq,
		service:     service,
		config:      config,
		logger:      utils.NewLogger("billing-worker"),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *BillingQueueWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop gracefully stops the worker
func (w *BillingQueueWorker) Stop() error {
	close(w.stopChan)
	<-w.stoppedChan
	return nil
}

// run is the main worker loop
func (w *BillingQueueWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Billing worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info("Billing worker context cancelled")
			return
		default:
			w.processBatch(ctx)
		}
	}
}

// processBatch processes a batch of usage events
func (w *BillingQueueWorker) processBatch(ctx context.Context) {
	events, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("Failed to dequeue billing events", "error", err)
			w.sleep(ctx, time.Second) // Back off on error
		}
		return
	}

	if len(events) == 0 {
		return
	}

	w.logger.Debug("Processing billing batch", "count", len(events))

	for _, ev := range events {
		if err := w.processEvent(ctx, ev); err != nil {
			w.logger.Error("Failed to process billing event", "event_id", ev.ID, "error", err)
		}
	}
}

// processEvent applies a single event with retries
func (w *BillingQueueWorker) processEvent(ctx context.Context, ev *queue.Event) error {
	caller := CallerID(ev)

	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug("Retrying billing event", "attempt", attempt, "backoff", backoff)
			if !w.sleep(ctx, backoff) {
				break
			}
		}

		err := w.service.AddUsage(ctx, caller, ev.CostEUR, ev.Record.CarbonGCO2eq)
		if err == nil {
			w.logger.Debug("Billing event processed", "caller", caller, "cost_eur", ev.CostEUR, "carbon_g", ev.Record.CarbonGCO2eq)
			return nil
		}
		lastErr = err
		w.logger.Error("Failed to add usage", "attempt", attempt, "error", err)
		if !utils.IsRecoverableError(err) {
			break
		}
	}

	if w.dlq != nil {
		if err := w.dlq.Add(ctx, ev, lastErr); err != nil {
			w.logger.Error("Failed to add to dead letter queue", "error", err)
		} else {
			w.logger.Warn("Billing event moved to DLQ", "caller", caller, "error", lastErr)
		}
	}

	return fmt.Errorf("%w: %w", queue.ErrMaxRetriesExceeded, lastErr)
}

// sleep waits for d, returning false if the worker is stopping.
func (w *BillingQueueWorker) sleep(ctx context.Context, d time.Duration) bool {
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
func (w *BillingQueueWorker) GetQueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// GetDeadLetterItems returns items from the dead letter queue
func (w *BillingQueueWorker) GetDeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, fmt.Errorf("dead letter queue not configured")
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetterItem re-enqueues a failed event from the dead letter queue
func (w *BillingQueueWorker) RetryDeadLetterItem(ctx context.Context, id string) error {
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
