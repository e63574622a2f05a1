// Package queue fans usage events out to asynchronous workers. Two backends
// are available:
//
//  1. Memory queue (channel-based): no persistence, no dependencies. Suits
//     single-process deployments and tests.
//  2. Redis queue (list-based): survives restarts and supports several
//     gateway replicas feeding shared workers.
//
// Flow:
//
//	┌──────────────┐
//	│  Estimator   │
//	└──────┬───────┘
//	       │ Publisher
//	       ├─────────────────────────┐
//	       ▼                         ▼
//	┌──────────────┐         ┌──────────────┐
//	│ Billing      │         │ Usage        │
//	│ Queue        │         │ Queue        │
//	└──────┬───────┘         └──────┬───────┘
//	       ▼                         ▼
//	┌──────────────┐         ┌──────────────┐
//	│ Billing      │         │ Usage        │
//	│ Worker       │         │ Worker       │
//	└──────┬───────┘         └──────┬───────┘
//	       │ (retry)                 │ (retry)
//	       ├─────────┐               ├──────────┬─────┐
//	       ▼         ▼               ▼          ▼     ▼
//	 ┌─────────┐ ┌─────┐      ┌──────────┐ ┌────┐ ┌─────┐
//	 │ Budgets │ │ DLQ │      │ Postgres │ │ S3 │ │ DLQ │
//	 └─────────┘ └─────┘      └──────────┘ └────┘ └─────┘
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue carries usage events to a worker.
type Queue interface {
	// Enqueue adds an event to the queue.
	Enqueue(ctx context.Context, ev *Event) error

	// Dequeue blocks until at least one event is available and returns up
	// to maxItems events.
	Dequeue(ctx context.Context, maxItems int) ([]*Event, error)

	// DequeueWithTimeout is like Dequeue but returns an empty slice when
	// nothing arrives before timeout.
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]*Event, error)

	// Length returns the number of queued events.
	Length(ctx context.Context) (int, error)

	// Close shuts the queue down.
	Close() error
}

// DeadLetterQueue stores events a worker gave up on.
type DeadLetterQueue interface {
	Add(ctx context.Context, ev *Event, err error) error
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)
	Remove(ctx context.Context, id string) error
	Close() error
}

// DeadLetterItem is a failed event with its last error.
type DeadLetterItem struct {
	ID        string    `json:"id"`
	Event     *Event    `json:"event"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Config holds queue configuration
type Config struct {
	// BatchSize is the maximum number of events processed together
	BatchSize int

	// BatchTimeout is how long a worker waits before processing a partial batch
	BatchTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries
	RetryBackoff time.Duration

	// UseRedis selects the Redis backend
	UseRedis bool

	// QueueName is the name/key for the queue
	QueueName string
}

// DefaultConfig returns default queue configuration
func DefaultConfig(queueName string) *Config {
	return &Config{
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
		UseRedis:     false,
		QueueName:    queueName,
	}
}

// New builds the queue and dead-letter queue selected by config. client is
// required when config.UseRedis is set.
func New(config *Config, client redis.UniversalClient) (Queue, DeadLetterQueue, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if !config.UseRedis {
		return NewMemoryQueue(config), NewMemoryDeadLetterQueue(), nil
	}
	if client == nil {
		return nil, nil, fmt.Errorf("redis client is required for queue %q", config.QueueName)
	}
	return NewRedisQueue(client, config), NewRedisDeadLetterQueue(client, config), nil
}
