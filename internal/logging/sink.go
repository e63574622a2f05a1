package logging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"eco_gateway/internal/queue"
	"eco_gateway/internal/utils"
)

// ErrSinkClosed is returned when enqueueing into a sink after Shutdown.
var ErrSinkClosed = errors.New("sink closed")

// Sink receives usage events for archival.
type Sink interface {
	Enqueue(ctx context.Context, ev *queue.Event) error
	Shutdown(ctx context.Context) error
}

// NoopSink discards everything.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (s *NoopSink) Enqueue(ctx context.Context, ev *queue.Event) error { return nil }

func (s *NoopSink) WriteUsage(ctx context.Context, events []*queue.Event) error { return nil }

func (s *NoopSink) Shutdown(ctx context.Context) error { return nil }

// S3SinkConfig configures the S3 archive sink.
type S3SinkConfig struct {
	Enabled       bool
	BufferSize    int           // events held in the in-memory buffer
	FlushSize     int           // events per S3 object
	FlushInterval time.Duration // max age of a partial batch
	S3Bucket      string
	S3Region      string
	S3Prefix      string
	S3Endpoint    string
	PodName       string
}

// S3Sink accumulates usage events and uploads them to S3 in JSON Lines
// objects of up to FlushSize events, or whatever is pending after
// FlushInterval.
type S3Sink struct {
	queue         queue.Queue
	writer        BatchWriter
	flushSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	closed      atomic.Bool
	flushed     atomic.Int64
	failed      atomic.Int64
	stopOnce    sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewS3Sink creates an S3 sink. buffer may be a Redis-backed queue shared
// across pods; nil selects an in-memory buffer of cfg.BufferSize events.
func NewS3Sink(ctx context.Context, cfg S3SinkConfig, buffer queue.Queue) (*S3Sink, error) {
	writer, err := NewS3Writer(ctx, S3WriterConfig{
		Bucket:   cfg.S3Bucket,
		Region:   cfg.S3Region,
		Prefix:   cfg.S3Prefix,
		PodName:  cfg.PodName,
		Endpoint: cfg.S3Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return newS3Sink(ctx, cfg, buffer, writer), nil
}

func newS3Sink(ctx context.Context, cfg S3SinkConfig, buffer queue.Queue, writer BatchWriter) *S3Sink {
	if cfg.FlushSize <= 0 {
		cfg.FlushSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	if buffer == nil {
		qcfg := queue.DefaultConfig("usage-archive")
		// The memory queue buffers ten batches.
		qcfg.BatchSize = max(cfg.BufferSize/10, 1)
		buffer = queue.NewMemoryQueue(qcfg)
	}

	s := &S3Sink{
		queue:         buffer,
		writer:        writer,
		flushSize:     cfg.FlushSize,
		flushInterval: cfg.FlushInterval,
		logger:        utils.NewLogger("s3-sink"),
		stopChan:      make(chan struct{}),
		stoppedChan:   make(chan struct{}),
	}
	go s.run(context.WithoutCancel(ctx))
	return s
}

const enqueueRetryInterval = 10 * time.Millisecond

// Enqueue buffers one event for upload, waiting while the buffer is full.
func (s *S3Sink) Enqueue(ctx context.Context, ev *queue.Event) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	for {
		err := s.queue.Enqueue(ctx, ev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, queue.ErrQueueFull) {
			return fmt.Errorf("failed to buffer usage event: %w", err)
		}
		// The flush loop frees room.
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to buffer usage event: %w", ctx.Err())
		case <-s.stoppedChan:
			return ErrSinkClosed
		case <-time.After(enqueueRetryInterval):
		}
	}
}

// WriteUsage buffers a batch of events, letting the usage worker feed the
// sink. A closed sink is a permanent failure.
func (s *S3Sink) WriteUsage(ctx context.Context, events []*queue.Event) error {
	for _, ev := range events {
		if err := s.Enqueue(ctx, ev); err != nil {
			if errors.Is(err, ErrSinkClosed) || errors.Is(err, queue.ErrQueueClosed) {
				return utils.Permanent(err)
			}
			return err
		}
	}
	return nil
}

// Flushed returns the number of events uploaded so far.
func (s *S3Sink) Flushed() int64 { return s.flushed.Load() }

// Failed returns the number of events whose upload failed.
func (s *S3Sink) Failed() int64 { return s.failed.Load() }

// run collects events into batches and uploads them.
func (s *S3Sink) run(ctx context.Context) {
	defer close(s.stoppedChan)

	var pending []*queue.Event
	var deadline time.Time

	for {
		select {
		case <-s.stopChan:
			pending = append(pending, s.drain(ctx)...)
			for len(pending) > 0 {
				n := min(len(pending), s.flushSize)
				s.flush(ctx, pending[:n])
				pending = pending[n:]
			}
			return
		default:
		}

		wait := s.flushInterval
		if len(pending) > 0 {
			wait = time.Until(deadline)
		}
		// Wake up regularly so Shutdown is noticed promptly.
		wait = min(max(wait, time.Millisecond), 250*time.Millisecond)

		events, err := s.queue.DequeueWithTimeout(ctx, s.flushSize-len(pending), wait)
		if err != nil && !errors.Is(err, queue.ErrQueueClosed) {
			s.logger.Error("Failed to read usage buffer", "error", err)
		}
		if len(pending) == 0 && len(events) > 0 {
			deadline = time.Now().Add(s.flushInterval)
		}
		pending = append(pending, events...)

		if len(pending) >= s.flushSize || (len(pending) > 0 && !time.Now().Before(deadline)) {
			s.flush(ctx, pending)
			pending = nil
		}
		if errors.Is(err, queue.ErrQueueClosed) {
			<-s.stopChan
		}
	}
}

// drain pulls whatever is still buffered.
func (s *S3Sink) drain(ctx context.Context) []*queue.Event {
	var out []*queue.Event
	for {
		n, err := s.queue.Length(ctx)
		if err != nil || n == 0 {
			return out
		}
		events, err := s.queue.DequeueWithTimeout(ctx, n, 10*time.Millisecond)
		if err != nil || len(events) == 0 {
			return out
		}
		out = append(out, events...)
	}
}

func (s *S3Sink) flush(ctx context.Context, events []*queue.Event) {
	key, err := s.writer.WriteBatch(ctx, events)
	if err != nil {
		s.failed.Add(int64(len(events)))
		s.logger.Error("Failed to upload usage batch", "count", len(events), "error", err)
		return
	}
	s.flushed.Add(int64(len(events)))
	s.logger.Debug("Uploaded usage batch", "key", key, "count", len(events))
}

// Shutdown stops accepting events, uploads everything still buffered and
// waits for the upload to finish or ctx to expire.
func (s *S3Sink) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	s.stopOnce.Do(func() { close(s.stopChan) })

	select {
	case <-s.stoppedChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
