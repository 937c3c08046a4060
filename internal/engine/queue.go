package engine

import "sync"

// task is one unit of work for the loop. done receives its result and is
// buffered so the loop never blocks on a caller that stopped listening.
type task struct {
	fn   func() error
	done chan error
}

// taskQueue is a thread-safe FIFO queue of tasks.
//
// Enqueue may be called from any goroutine while the loop dequeues. The
// signal channel lets the loop wait for work and for context cancellation
// in one select.
type taskQueue struct {
	mu     sync.Mutex
	tasks  []task
	limit  int
	closed bool
	signal chan struct{} // buffered, size 1
}

func newTaskQueue(limit int) *taskQueue {
	return &taskQueue{
		tasks:  make([]task, 0, 64),
		limit:  limit,
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds t to the back of the queue. It fails when the queue is
// closed or holds limit tasks already.
func (q *taskQueue) Enqueue(t task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return newStoppedError()
	}
	if q.limit > 0 && len(q.tasks) >= q.limit {
		return newQueueFullError(len(q.tasks), q.limit)
	}

	q.tasks = append(q.tasks, t)

	// Multiple signals coalesce in the buffer.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// TryDequeue removes and returns the front task without blocking.
func (q *taskQueue) TryDequeue() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return task{}, false
	}

	t := q.tasks[0]
	// Release the closure for GC.
	q.tasks[0] = task{}
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return t, true
}

// Wait returns a channel that signals when tasks may be available. It is
// closed when the queue is closed.
func (q *taskQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending tasks.
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close refuses further tasks and wakes the waiting loop. Pending tasks
// are left for the loop to drain.
func (q *taskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Closed reports whether Close was called.
func (q *taskQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
