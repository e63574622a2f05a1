package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eco_gateway/internal/carbon"
)

func TestPublisherFansOut(t *testing.T) {
	billing := NewMemoryQueue(DefaultConfig("billing"))
	usage := NewMemoryQueue(DefaultConfig("usage"))
	defer billing.Close()
	defer usage.Close()

	p := NewPublisher(billing, usage)
	ctx := WithMeta(context.Background(), Meta{
		RequestID: "req-1",
		APIKeyID:  "key-1",
		UserID:    "user-1",
		CostEUR:   0.0042,
	})

	rec := carbon.UsageRecord{Timestamp: time.Now().UTC(), Model: "mistral:small", InputTokens: 1000, CarbonGCO2eq: 0.3}
	require.NoError(t, p.Publish(ctx, rec))

	for _, q := range []Queue{billing, usage} {
		items, err := q.DequeueWithTimeout(context.Background(), 10, 100*time.Millisecond)
		require.NoError(t, err)
		require.Len(t, items, 1)
		ev := items[0]
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, "req-1", ev.RequestID)
		assert.Equal(t, "key-1", ev.APIKeyID)
		assert.Equal(t, "user-1", ev.UserID)
		assert.Equal(t, 0.0042, ev.CostEUR)
		assert.Equal(t, rec, ev.Record)
	}
}

func TestPublisherWithoutMeta(t *testing.T) {
	q := NewMemoryQueue(DefaultConfig("usage"))
	defer q.Close()

	require.NoError(t, NewPublisher(q).Publish(context.Background(), carbon.UsageRecord{Model: "x"}))

	items, err := q.Dequeue(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items[0].APIKeyID)
	assert.Zero(t, items[0].CostEUR)
}

func TestPublisherReportsClosedQueue(t *testing.T) {
	closed := NewMemoryQueue(DefaultConfig("billing"))
	closed.Close()
	open := NewMemoryQueue(DefaultConfig("usage"))
	defer open.Close()

	err := NewPublisher(closed, open).Publish(context.Background(), carbon.UsageRecord{Model: "x"})
	assert.ErrorIs(t, err, ErrQueueClosed)

	length, _ := open.Length(context.Background())
	assert.Equal(t, 1, length)
}

func TestEstimateWithSaturatedQueue(t *testing.T) {
	config := DefaultConfig("usage")
	config.BatchSize = 1
	q := NewMemoryQueue(config)
	defer q.Close()

	est := carbon.NewEstimator(carbon.DefaultTable(), nil, carbon.WithPublishers(NewPublisher(q)))
	ctx := context.WithoutCancel(context.Background())
	for i := 0; i < 10; i++ {
		est.Estimate(ctx, "mistral:small", 100, 100)
	}

	done := make(chan carbon.UsageRecord, 1)
	go func() { done <- est.Estimate(ctx, "mistral:small", 1000, 0) }()

	select {
	case rec := <-done:
		assert.Equal(t, 0.3, rec.CarbonGCO2eq)
	case <-time.After(2 * time.Second):
		t.Fatal("Estimate blocked on a full usage queue")
	}

	length, _ := q.Length(context.Background())
	assert.Equal(t, 10, length)
}

func TestPublisherReportsFullQueue(t *testing.T) {
	config := DefaultConfig("billing")
	config.BatchSize = 1
	full := NewMemoryQueue(config)
	defer full.Close()
	for i := 0; i < 10; i++ {
		require.NoError(t, full.Enqueue(context.Background(), testEvent("x")))
	}
	open := NewMemoryQueue(DefaultConfig("usage"))
	defer open.Close()

	err := NewPublisher(full, open).Publish(context.Background(), carbon.UsageRecord{Model: "x"})
	assert.ErrorIs(t, err, ErrQueueFull)

	length, _ := open.Length(context.Background())
	assert.Equal(t, 1, length)
}
