package worker

import (
	"context"

	audit "aegis/pkg/platform/audit"
)

// Queue is an audit.Store that hands events to a Worker instead of persisting them.
// Append blocks until the event is queued or ctx is done.
type Queue struct {
	ch chan audit.Event
}

func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan audit.Event, size)}
}

func (q *Queue) Append(ctx context.Context, event audit.Event) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events is the inbox a Worker drains.
func (q *Queue) Events() <-chan audit.Event {
	return q.ch
}

// Close ends the worker loop once queued events are drained. Append must not be called after Close.
func (q *Queue) Close() {
	close(q.ch)
}
