package engine

import (
	"context"
	"sync"
)

// Result is delivered on the reply channel of a queued call.
type Result struct {
	Receipt *Receipt
	Err     error
}

type request struct {
	ctx   context.Context
	call  Call
	reply chan Result
}

// callQueue is an unbounded FIFO of pending calls feeding the Run loop.
//
// The signal channel (buffered, size 1) coalesces wakeups so the loop can
// select on it together with ctx.Done.
type callQueue struct {
	mu      sync.Mutex
	pending []request
	closed  bool
	signal  chan struct{}
}

func newCallQueue() *callQueue {
	return &callQueue{
		pending: make([]request, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds r to the back of the queue. Returns false once closed.
func (q *callQueue) Enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.pending = append(q.pending, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue pops the front request without blocking.
func (q *callQueue) TryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return request{}, false
	}
	r := q.pending[0]
	// Drop the reference so the reply channel can be collected.
	q.pending[0] = request{}
	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}
	return r, true
}

// Wait returns a channel that fires when requests may be available. It is
// closed by Close.
func (q *callQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued requests.
func (q *callQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further enqueues and wakes the Run loop.
func (q *callQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// drain removes and returns every queued request.
func (q *callQueue) drain() []request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
