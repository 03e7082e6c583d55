// Package syncqueue holds the remote writes that could not be mirrored to Core
// when they happened.
//
// A [Queue] is an unbounded FIFO shared by many producers (the request
// handlers) and one consumer (the sync worker). Enqueue never blocks and never
// fails. Dequeue waits for the oldest task or for its context to end.
//
// First attempts leave the queue in the order they entered it. A task that
// fails again is re-enqueued at the tail, behind anything enqueued meanwhile,
// so ordering across retries is not preserved.
//
// The queue lives in memory. The outbox package can journal tasks so they
// survive a restart.
package syncqueue

import (
	"context"
	"sync"
)

// Queue is a concurrency-safe unbounded FIFO of tasks.
type Queue struct {
	mu      sync.Mutex
	items   []Task
	waiters []chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends task to the tail and wakes one waiting consumer, if any.
func (q *Queue) Enqueue(task Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, task)
	q.wakeOneLocked()
}

func (q *Queue) wakeOneLocked() {
	if len(q.waiters) == 0 {
		return
	}
	w := q.waiters[0]
	q.waiters[0] = nil
	q.waiters = q.waiters[1:]
	close(w)
}

// Dequeue removes and returns the oldest task, waiting until one is available.
// It returns ctx.Err() if ctx ends first; no task is consumed in that case.
func (q *Queue) Dequeue(ctx context.Context) (Task, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			task := q.items[0]
			q.items[0] = Task{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return task, nil
		}
		wake := make(chan struct{})
		q.waiters = append(q.waiters, wake)
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			q.mu.Lock()
			if !q.removeWaiterLocked(wake) && len(q.items) > 0 {
				// We were woken for an item we will not take; pass it on.
				q.wakeOneLocked()
			}
			q.mu.Unlock()
			return Task{}, ctx.Err()
		}
	}
}

// removeWaiterLocked reports whether wake was still registered.
func (q *Queue) removeWaiterLocked(wake chan struct{}) bool {
	for i, w := range q.waiters {
		if w == wake {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of tasks waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot returns a copy of the waiting tasks, oldest first.
func (q *Queue) Snapshot() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Task, len(q.items))
	copy(out, q.items)
	return out
}
