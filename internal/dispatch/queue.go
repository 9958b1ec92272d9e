// Package dispatch marshals work onto the single goroutine that owns the
// map's mutable state.
package dispatch

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when posting to a closed queue.
var ErrClosed = errors.New("dispatch: queue closed")

// Queue is a single-consumer task queue. Any goroutine may post; only the
// goroutine calling Run or RunPending executes tasks, one at a time, in
// posting order.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It never blocks and returns false once the queue is
// closed.
func (q *Queue) Post(fn func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Invoke posts fn and waits until it has run. It must not be called from the
// owning goroutine, which would wait on itself.
func (q *Queue) Invoke(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !q.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		// Close drains nothing; a task still queued never runs.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// RunPending executes the tasks queued so far on the calling goroutine,
// including tasks they post, and returns how many ran.
func (q *Queue) RunPending() int {
	n := 0
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 || q.closed {
			q.mu.Unlock()
			return n
		}
		fn := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		fn()
		n++
	}
}

// Run executes tasks until ctx is done or the queue is closed.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.done:
			return nil
		case <-q.wake:
		}
	}
}

// Close stops the queue. Tasks not yet run are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.tasks = nil
	close(q.done)
}
