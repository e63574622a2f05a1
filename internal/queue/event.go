package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eco_gateway/internal/carbon"
)

// Event is one completed chat call as seen by the billing and usage workers.
type Event struct {
	ID        string             `json:"id"`
	RequestID string             `json:"request_id,omitempty"`
	APIKeyID  string             `json:"api_key_id,omitempty"`
	UserID    string             `json:"user_id,omitempty"`
	CostEUR   float64            `json:"cost_eur"`
	Record    carbon.UsageRecord `json:"record"`
}

// Meta carries request-scoped attribution for events built by a Publisher.
type Meta struct {
	RequestID string
	APIKeyID  string
	UserID    string
	CostEUR   float64
}

type metaKey struct{}

// WithMeta attaches attribution to ctx.
func WithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// MetaFromContext returns the attribution attached by WithMeta.
func MetaFromContext(ctx context.Context) (Meta, bool) {
	meta, ok := ctx.Value(metaKey{}).(Meta)
	return meta, ok
}

// Publisher enqueues every usage record on each of its queues. It satisfies
// carbon.Publisher.
type Publisher struct {
	queues []Queue
}

// NewPublisher creates a publisher feeding queues.
func NewPublisher(queues ...Queue) *Publisher {
	return &Publisher{queues: queues}
}

// Publish wraps rec in an Event and enqueues it on every queue. Enqueue
// errors are joined; a failure on one queue does not skip the others.
func (p *Publisher) Publish(ctx context.Context, rec carbon.UsageRecord) error {
	meta, _ := MetaFromContext(ctx)
	ev := &Event{
		ID:        uuid.NewString(),
		RequestID: meta.RequestID,
		APIKeyID:  meta.APIKeyID,
		UserID:    meta.UserID,
		CostEUR:   meta.CostEUR,
		Record:    rec,
	}

	var errs []error
	for _, q := range p.queues {
		if err := q.Enqueue(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("enqueue usage event: %w", err))
		}
	}
	return errors.Join(errs...)
}
