package queue

import "errors"

var (
	// ErrQueueClosed is returned when operating on a closed queue
	ErrQueueClosed = errors.New("queue is closed")

	// ErrQueueFull is returned by bounded queues that cannot take more events
	ErrQueueFull = errors.New("queue is full")

	// ErrItemNotFound is returned when a dead-letter item does not exist
	ErrItemNotFound = errors.New("item not found")

	// ErrMaxRetriesExceeded is recorded on events that exhausted their retries
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
