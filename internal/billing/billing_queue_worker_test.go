package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"eco_gateway/internal/carbon"
	"eco_gateway/internal/queue"
	"eco_gateway/internal/utils"
)

// go-redis starts a process-wide clock goroutine once any client exists in
// the test binary.
var ignoreRedisTimeCache = goleak.IgnoreAnyFunction("github.com/redis/go-redis/v9/internal/pool.startGlobalTimeCache.func1")

// mockBillingService implements Service for testing
type mockBillingService struct {
	mu       sync.Mutex
	cost     map[string]float64
	carbon   map[string]float64
	failures int
	err      error
	calls    int
}

func newMockBillingService() *mockBillingService {
	return &mockBillingService{
		cost:   make(map[string]float64),
		carbon: make(map[string]float64),
	}
}

func (m *mockBillingService) WithinBudget(ctx context.Context, callerID string) bool {
	return true
}

func (m *mockBillingService) AddUsage(ctx context.Context, callerID string, costEUR, carbonG float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		return m.err
	}
	m.cost[callerID] += costEUR
	m.carbon[callerID] += carbonG
	return nil
}

func (m *mockBillingService) totals(callerID string) (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cost[callerID], m.carbon[callerID]
}

func (m *mockBillingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func billingEvent(apiKeyID string, cost, carbonG float64) *queue.Event {
	return &queue.Event{
		ID:       "ev",
		APIKeyID: apiKeyID,
		CostEUR:  cost,
		Record:   carbon.UsageRecord{Model: "mistral:small", CarbonGCO2eq: carbonG},
	}
}

func testConfig(name string) *queue.Config {
	config := queue.DefaultConfig(name)
	config.BatchSize = 5
	config.BatchTimeout = 50 * time.Millisecond
	config.RetryBackoff = 5 * time.Millisecond
	return config
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBillingQueueWorker_BatchProcessing(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRedisTimeCache)

	config := testConfig("test-billing")
	q := queue.NewMemoryQueue(config)
	dlq := queue.NewMemoryDeadLetterQueue()
	service := newMockBillingService()

	worker := NewBillingQueueWorker(q, dlq, service, config)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	for i := 0; i < 12; i++ {
		if err := q.Enqueue(ctx, billingEvent("key-1", 1.0, 0.5)); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	waitFor(t, func() bool {
		cost, _ := service.totals("key-1")
		return cost == 12.0
	})
	_, carbonG := service.totals("key-1")
	if carbonG != 6.0 {
		t.Errorf("Expected carbon 6.0, got %f", carbonG)
	}

	if err := worker.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestBillingQueueWorker_CallerFallback(t *testing.T) {
	tests := []struct {
		name string
		ev   *queue.Event
		want string
	}{
		{name: "api key", ev: &queue.Event{APIKeyID: "k", UserID: "u"}, want: "k"},
		{name: "user", ev: &queue.Event{UserID: "u"}, want: "u"},
		{name: "anonymous", ev: &queue.Event{}, want: AnonymousCaller},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CallerID(tt.ev); got != tt.want {
				t.Errorf("CallerID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBillingQueueWorker_RetryThenSucceed(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRedisTimeCache)

	config := testConfig("test-billing-retry")
	q := queue.NewMemoryQueue(config)
	dlq := queue.NewMemoryDeadLetterQueue()
	service := newMockBillingService()
	service.failures = 2
	service.err = errors.New("redis timeout")

	worker := NewBillingQueueWorker(q, dlq, service, config)
	ctx := context.Background()
	worker.Start(ctx)

	_ = q.Enqueue(ctx, billingEvent("key-1", 2.0, 1.0))

	waitFor(t, func() bool {
		cost, _ := service.totals("key-1")
		return cost == 2.0
	})
	worker.Stop()

	if service.callCount() != 3 {
		t.Errorf("Expected 3 attempts, got %d", service.callCount())
	}
	items, _ := dlq.List(ctx, 0)
	if len(items) != 0 {
		t.Errorf("Expected empty DLQ, got %d items", len(items))
	}
}

func TestBillingQueueWorker_DeadLetter(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRedisTimeCache)

	config := testConfig("test-billing-dlq")
	config.MaxRetries = 2
	q := queue.NewMemoryQueue(config)
	dlq := queue.NewMemoryDeadLetterQueue()
	service := newMockBillingService()
	service.failures = 100
	service.err = errors.New("redis down")

	worker := NewBillingQueueWorker(q, dlq, service, config)
	ctx := context.Background()
	worker.Start(ctx)

	_ = q.Enqueue(ctx, billingEvent("key-1", 1.0, 1.0))

	waitFor(t, func() bool {
		items, _ := worker.GetDeadLetterItems(ctx, 0)
		return len(items) == 1
	})
	worker.Stop()

	if service.callCount() != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", service.callCount())
	}
}

func TestBillingQueueWorker_PermanentErrorSkipsRetries(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreRedisTimeCache)

	config := testConfig("test-billing-permanent")
	q := queue.NewMemoryQueue(config)
	dlq := queue.NewMemoryDeadLetterQueue()
	service := newMockBillingService()
	service.failures = 100
	service.err = utils.Permanent(errors.New("WRONGTYPE"))

	worker := NewBillingQueueWorker(q, dlq, service, config)
	ctx := context.Background()
	worker.Start(ctx)

	_ = q.Enqueue(ctx, billingEvent("key-1", 1.0, 1.0))

	waitFor(t, func() bool {
		items, _ := dlq.List(ctx, 0)
		return len(items) == 1
	})
	worker.Stop()

	if service.callCount() != 1 {
		t.Errorf("Expected a single attempt, got %d", service.callCount())
	}
}

func TestBillingQueueWorker_RetryDeadLetterItem(t *testing.T) {
	config := testConfig("test-billing-redrive")
	q := queue.NewMemoryQueue(config)
	defer q.Close()
	dlq := queue.NewMemoryDeadLetterQueue()
	worker := NewBillingQueueWorker(q, dlq, newMockBillingService(), config)
	ctx := context.Background()

	if err := dlq.Add(ctx, billingEvent("key-1", 1, 1), errors.New("boom")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	items, _ := worker.GetDeadLetterItems(ctx, 0)

	if err := worker.RetryDeadLetterItem(ctx, items[0].ID); err != nil {
		t.Fatalf("RetryDeadLetterItem failed: %v", err)
	}
	if length, _ := worker.GetQueueLength(ctx); length != 1 {
		t.Errorf("Expected 1 queued event, got %d", length)
	}
	if err := worker.RetryDeadLetterItem(ctx, items[0].ID); !errors.Is(err, queue.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}
