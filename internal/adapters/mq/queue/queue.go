// Package queue holds simulation tasks between submission and the worker pool.
//
// The queue is bounded: a full queue refuses new work instead of blocking
// the submitting request.
package queue

import (
	"context"
	"sync"

	"github.com/beenjammin/basgra/internal/domain/model"
	"github.com/beenjammin/basgra/pkg/metrics"
)

const defaultQueueCapacity = 1000

// Task is the payload type flowing through the queue.
type Task = model.Task

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task. It returns ErrFull or ErrClosed when the task
	// was not accepted, or the context error if ctx is already done.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue returns a channel that receives tasks as they become
	// available. The channel is closed when the queue is closed and
	// drained, or when ctx is done. A task taken for a consumer whose ctx
	// ends before delivery is held for the next Dequeue.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the current number of queued tasks.
	Len() int

	// Cap returns the maximum number of queued tasks.
	Cap() int

	// Close stops accepting tasks. Queued tasks can still be dequeued.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks    chan Task
	capacity int
	mu       sync.RWMutex
	closed   bool

	heldMu sync.Mutex
	held   []Task        // taken by a relay whose consumer went away
	ready  chan struct{} // signalled when held gains a task
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	q.ready = make(chan struct{}, 1)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds a task to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) error {
	if err := ctx.Err(); err != nil {
		q.refused("context_cancelled")
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.refused("closed")
		return ErrClosed
	}

	select {
	case q.tasks <- t:
		metrics.RecordQueueEnqueue()
		q.observe()
		return nil
	default:
		q.refused("queue_full")
		return ErrFull
	}
}

// Dequeue returns a channel that will receive tasks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		for {
			t, ok := q.unhold()
			if !ok {
				select {
				case t, ok = <-q.tasks:
					if !ok {
						// Closed and drained; held tasks still go out.
						if t, ok = q.unhold(); !ok {
							return
						}
					}
				case <-q.ready:
					continue
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- t:
				metrics.RecordQueueDequeue()
				q.observe()
			case <-ctx.Done():
				q.hold(t)
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued tasks, held ones included.
func (q *InMemoryQueue) Len() int {
	q.heldMu.Lock()
	defer q.heldMu.Unlock()
	return len(q.tasks) + len(q.held)
}

// Cap returns the maximum number of queued tasks.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

// Close stops accepting tasks. It is safe to call more than once.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// hold keeps an undelivered task for the next relay.
func (q *InMemoryQueue) hold(t Task) {
	q.heldMu.Lock()
	q.held = append(q.held, t)
	q.heldMu.Unlock()
	q.signal()
}

func (q *InMemoryQueue) unhold() (Task, bool) {
	q.heldMu.Lock()
	defer q.heldMu.Unlock()
	if len(q.held) == 0 {
		return Task{}, false
	}
	t := q.held[0]
	q.held[0] = Task{}
	q.held = q.held[1:]
	if len(q.held) > 0 {
		q.signal()
	}
	return t, true
}

func (q *InMemoryQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *InMemoryQueue) observe() {
	size := q.Len()
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

func (q *InMemoryQueue) refused(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}
