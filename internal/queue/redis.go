package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"eco_gateway/internal/utils"
)

// RedisQueue implements Queue using a Redis list. The client is owned by the
// caller; Close does not close it.
type RedisQueue struct {
	client redis.UniversalClient
	config *Config
	qKey   string
}

// NewRedisQueue creates a Redis-backed queue
func NewRedisQueue(client redis.UniversalClient, config *Config) *RedisQueue {
	if config == nil {
		config = DefaultConfig("usage")
	}
	return &RedisQueue{
		client: client,
		config: config,
		qKey:   fmt.Sprintf("queue:%s", config.QueueName),
	}
}

// Enqueue adds an event to the queue
func (q *RedisQueue) Enqueue(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return utils.Permanent(fmt.Errorf("failed to marshal event: %w", err))
	}

	if err := q.client.RPush(ctx, q.qKey, data).Err(); err != nil {
		return fmt.Errorf("failed to push to Redis: %w", err)
	}

	return nil
}

// Dequeue retrieves events from the queue, blocking for the first one
func (q *RedisQueue) Dequeue(ctx context.Context, maxItems int) ([]*Event, error) {
	return q.pop(ctx, maxItems, 0)
}

// DequeueWithTimeout retrieves events with a timeout
func (q *RedisQueue) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]*Event, error) {
	return q.pop(ctx, maxItems, timeout)
}

func (q *RedisQueue) pop(ctx context.Context, maxItems int, timeout time.Duration) ([]*Event, error) {
	// result[0] is the key, result[1] is the value
	result, err := q.client.BLPop(ctx, timeout, q.qKey).Result()
	if errors.Is(err, redis.Nil) {
		return []*Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop from Redis: %w", err)
	}

	items := make([]*Event, 0, maxItems)
	if ev, ok := q.decode(result[1]); ok {
		items = append(items, ev)
	}

	// Try to get more events without blocking
	for len(items) < maxItems {
		raw, err := q.client.LPop(ctx, q.qKey).Result()
		if err != nil {
			// redis.Nil means empty; anything else returns what we have so far
			break
		}
		if ev, ok := q.decode(raw); ok {
			items = append(items, ev)
		}
	}

	return items, nil
}

func (q *RedisQueue) decode(raw string) (*Event, bool) {
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		utils.NewLogger("queue").Warn("Dropping malformed queue entry", "queue", q.config.QueueName, "error", err)
		return nil, false
	}
	return &ev, true
}

// Length returns the current queue length
func (q *RedisQueue) Length(ctx context.Context) (int, error) {
	length, err := q.client.LLen(ctx, q.qKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}
	return int(length), nil
}

// Close is a no-op; the Redis client is shared.
func (q *RedisQueue) Close() error {
	return nil
}

// RedisDeadLetterQueue implements DeadLetterQueue using a Redis hash
type RedisDeadLetterQueue struct {
	client redis.UniversalClient
	dlKey  string
}

// NewRedisDeadLetterQueue creates a Redis-backed dead letter queue
func NewRedisDeadLetterQueue(client redis.UniversalClient, config *Config) *RedisDeadLetterQueue {
	if config == nil {
		config = DefaultConfig("usage")
	}
	return &RedisDeadLetterQueue{
		client: client,
		dlKey:  fmt.Sprintf("dlq:%s", config.QueueName),
	}
}

// Add adds a failed event to the dead letter queue
func (q *RedisDeadLetterQueue) Add(ctx context.Context, ev *Event, err error) error {
	dlItem := newDeadLetterItem(ev, err)

	data, marshalErr := json.Marshal(dlItem)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal dead letter item: %w", marshalErr)
	}

	if err := q.client.HSet(ctx, q.dlKey, dlItem.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to add to dead letter queue: %w", err)
	}

	return nil
}

// List retrieves items from the dead letter queue, oldest first
func (q *RedisDeadLetterQueue) List(ctx context.Context, maxItems int) ([]DeadLetterItem, error) {
	results, err := q.client.HGetAll(ctx, q.dlKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letter items: %w", err)
	}

	items := make([]DeadLetterItem, 0, len(results))
	for _, data := range results {
		var dlItem DeadLetterItem
		if err := json.Unmarshal([]byte(data), &dlItem); err != nil {
			continue // Skip malformed items
		}
		items = append(items, dlItem)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Timestamp.Before(items[j].Timestamp) })
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

// Remove removes an item from the dead letter queue
func (q *RedisDeadLetterQueue) Remove(ctx context.Context, id string) error {
	n, err := q.client.HDel(ctx, q.dlKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from dead letter queue: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Close is a no-op; the Redis client is shared.
func (q *RedisDeadLetterQueue) Close() error {
	return nil
}
