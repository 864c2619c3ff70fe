package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// DefaultQueueSize bounds the number of events waiting for delivery.
const DefaultQueueSize = 256

// Queue hands events to a single background worker so publishers never wait
// on slow sinks. Events are delivered in publish order.
type Queue struct {
	name    string
	handler EventHandler
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	jobs   chan Event
	done   chan struct{}
}

// NewQueue starts the worker. size <= 0 uses DefaultQueueSize.
func NewQueue(name string, size int, handler EventHandler, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &Queue{
		name:    name,
		handler: handler,
		logger:  logger,
		jobs:    make(chan Event, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Handle enqueues event without blocking. It matches EventHandler so a queue
// can be subscribed directly on a Dispatcher.
func (q *Queue) Handle(_ context.Context, event Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for event := range q.jobs {
		if err := q.handler(context.Background(), event); err != nil {
			q.logger.Warn("event delivery failed",
				zap.String("queue", q.name),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

// Close stops accepting events and waits until the queued ones are delivered.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	<-q.done
}
