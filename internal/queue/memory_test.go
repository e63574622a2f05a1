package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eco_gateway/internal/carbon"
)

func testEvent(model string) *Event {
	return &Event{
		ID:      model + "-event",
		CostEUR: 0.0001,
		Record: carbon.UsageRecord{
			Timestamp:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
			Model:        model,
			InputTokens:  32,
			OutputTokens: 58,
			CarbonGCO2eq: 0.045,
			EnergyKWh:    0.045 / carbon.GridIntensity,
		},
	}
}

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	if err := q.Enqueue(ctx, testEvent("mock:gpt-mini")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	items, err := q.Dequeue(ctx, 10)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Record.Model != "mock:gpt-mini" {
		t.Errorf("Expected model mock:gpt-mini, got %s", items[0].Record.Model)
	}
}

func TestMemoryQueue_BatchDequeue(t *testing.T) {
	config := DefaultConfig("test")
	config.BatchSize = 5
	q := NewMemoryQueue(config)
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if err := q.Enqueue(ctx, testEvent("mistral:small")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	for _, want := range []int{5, 5, 2} {
		items, err := q.Dequeue(ctx, config.BatchSize)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if len(items) != want {
			t.Errorf("Expected %d items in batch, got %d", want, len(items))
		}
	}
}

func TestMemoryQueue_DequeueWithTimeout(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()

	start := time.Now()
	items, err := q.DequeueWithTimeout(ctx, 1, 100*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected 0 items, got %d", len(items))
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Expected timeout, but returned early: %v", elapsed)
	}

	if err := q.Enqueue(ctx, testEvent("openai:gpt-4o-mini")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	items, err = q.DequeueWithTimeout(ctx, 1, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("DequeueWithTimeout failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(items))
	}
}

func TestMemoryQueue_Length(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := q.Enqueue(ctx, testEvent("mock:gpt-mini")); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	length, err := q.Length(ctx)
	if err != nil {
		t.Fatalf("Length failed: %v", err)
	}
	if length != 5 {
		t.Errorf("Expected length 5, got %d", length)
	}
}

func TestMemoryQueue_CloseDrainsThenFails(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	ctx := context.Background()

	if err := q.Enqueue(ctx, testEvent("mock:gpt-mini")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := q.Enqueue(ctx, testEvent("mock:gpt-mini")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed on enqueue, got %v", err)
	}

	items, err := q.Dequeue(ctx, 10)
	if err != nil {
		t.Fatalf("Dequeue of buffered item failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("Expected buffered item after close, got %d", len(items))
	}

	if _, err := q.Dequeue(ctx, 10); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed once drained, got %v", err)
	}
}

func TestMemoryQueue_CloseUnblocksDequeue(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background(), 1)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrQueueClosed) {
			t.Errorf("Expected ErrQueueClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after Close")
	}
}

func TestMemoryQueue_ContextCancellation(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("test"))
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestMemoryQueue_FullQueueDoesNotBlock(t *testing.T) {
	config := DefaultConfig("test")
	config.BatchSize = 1
	q := NewMemoryQueue(config)
	defer q.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if err := q.Enqueue(ctx, testEvent("mock:gpt-mini")); err != nil {
			t.Fatalf("Enqueue %d failed: %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- q.Enqueue(ctx, testEvent("mock:gpt-mini")) }()

	select {
	case err := <-done:
		if !errors.Is(err, ErrQueueFull) {
			t.Errorf("Expected ErrQueueFull, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	length, _ := q.Length(ctx)
	if length != 10 {
		t.Errorf("Expected length 10, got %d", length)
	}
}

func TestMemoryQueue_ConcurrentProducers(t *testing.T) {
	config := DefaultConfig("test")
	config.BatchSize = 100
	q := NewMemoryQueue(config)
	defer q.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = q.Enqueue(ctx, testEvent("mistral:large"))
			}
		}()
	}
	wg.Wait()

	length, _ := q.Length(ctx)
	if length != 100 {
		t.Errorf("Expected length 100, got %d", length)
	}
}

func TestMemoryDeadLetterQueue(t *testing.T) {
	dlq := NewMemoryDeadLetterQueue()
	defer dlq.Close()

	ctx := context.Background()

	for _, model := range []string{"a:1", "a:2", "a:3"} {
		if err := dlq.Add(ctx, testEvent(model), ErrMaxRetriesExceeded); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	items, err := dlq.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Event.Record.Model != "a:1" {
		t.Errorf("Expected oldest item first, got %s", items[0].Event.Record.Model)
	}
	if items[0].Error != ErrMaxRetriesExceeded.Error() {
		t.Errorf("Expected error %q, got %q", ErrMaxRetriesExceeded, items[0].Error)
	}

	limited, _ := dlq.List(ctx, 2)
	if len(limited) != 2 {
		t.Errorf("Expected 2 items, got %d", len(limited))
	}

	if err := dlq.Remove(ctx, items[1].ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := dlq.Remove(ctx, items[1].ID); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}

	items, _ = dlq.List(ctx, 0)
	if len(items) != 2 {
		t.Errorf("Expected 2 items after remove, got %d", len(items))
	}

	dlq.Close()
	if err := dlq.Add(ctx, testEvent("a:4"), errors.New("boom")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Expected ErrQueueClosed, got %v", err)
	}
}

func TestNew(t *testing.T) {
	q, dlq, err := New(DefaultConfig("usage"), nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := q.(*MemoryQueue); !ok {
		t.Errorf("Expected *MemoryQueue, got %T", q)
	}
	if _, ok := dlq.(*MemoryDeadLetterQueue); !ok {
		t.Errorf("Expected *MemoryDeadLetterQueue, got %T", dlq)
	}

	config := DefaultConfig("usage")
	config.UseRedis = true
	if _, _, err := New(config, nil); err == nil {
		t.Error("Expected error when Redis is selected without a client")
	}

	if _, _, err := New(nil, nil); err == nil {
		t.Error("Expected error for nil config")
	}
}
