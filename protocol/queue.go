package protocol

import (
	"sync"
	"time"
)

// CharQueue is a blocking FIFO of byte chunks bounded by total byte count
// rather than chunk count, modeling the receive buffer of a serial UART.
// A Put may be truncated to the remaining capacity; a full queue blocks
// the writer until space frees up or the timeout expires.
type CharQueue struct {
	mu       sync.Mutex
	items    [][]byte
	size     int
	capacity int
	// changed is closed and replaced on every mutation so that blocked
	// writers and readers can wait for a state change with a timeout.
	changed chan struct{}
}

// NewCharQueue creates a CharQueue holding up to capacity bytes.
func NewCharQueue(capacity int) *CharQueue {
	return &CharQueue{
		capacity: capacity,
		changed:  make(chan struct{}),
	}
}

// Put enqueues data, blocking until it fits or the timeout expires.
// If partial is true and the queue has some free space but not enough for
// the whole chunk, the chunk is truncated once, up front, to what fits.
// Returns the number of bytes accepted and whether the put succeeded.
func (q *CharQueue) Put(data []byte, partial bool, timeout time.Duration) (int, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	if free := q.capacity - q.size; partial && len(data) > free && free > 0 {
		data = data[:free]
	}
	for len(data) > q.capacity-q.size {
		ch := q.changed
		q.mu.Unlock()
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, false
		}
		select {
		case <-ch:
		case <-time.After(wait):
			return 0, false
		}
		q.mu.Lock()
	}
	if len(data) > 0 {
		item := make([]byte, len(data))
		copy(item, data)
		q.items = append(q.items, item)
		q.size += len(item)
		q.broadcast()
	}
	q.mu.Unlock()
	return len(data), true
}

// Get removes and returns the oldest chunk, blocking up to timeout.
// The second result is false if the queue stayed empty.
func (q *CharQueue) Get(timeout time.Duration) ([]byte, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	for len(q.items) == 0 {
		ch := q.changed
		q.mu.Unlock()
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, false
		}
		select {
		case <-ch:
		case <-time.After(wait):
			return nil, false
		}
		q.mu.Lock()
	}
	item := q.items[0]
	q.items = q.items[1:]
	q.size -= len(item)
	q.broadcast()
	q.mu.Unlock()
	return item, true
}

// Buffered returns the number of bytes currently queued.
func (q *CharQueue) Buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Free returns the number of bytes that can be queued without blocking.
func (q *CharQueue) Free() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity - q.size
}

// Clear drops all queued chunks, waking any blocked writers.
func (q *CharQueue) Clear() {
	q.mu.Lock()
	q.items = nil
	q.size = 0
	q.broadcast()
	q.mu.Unlock()
}

// broadcast wakes all waiters. Callers must hold q.mu.
func (q *CharQueue) broadcast() {
	close(q.changed)
	q.changed = make(chan struct{})
}

// LineQueue is an unbounded blocking FIFO of response lines, the outgoing
// direction of the emulated serial channel.
type LineQueue struct {
	mu      sync.Mutex
	lines   []string
	changed chan struct{}
}

// NewLineQueue creates an empty LineQueue.
func NewLineQueue() *LineQueue {
	return &LineQueue{changed: make(chan struct{})}
}

// Put appends a line. It never blocks.
func (q *LineQueue) Put(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	close(q.changed)
	q.changed = make(chan struct{})
	q.mu.Unlock()
}

// Get removes and returns the oldest line, blocking up to timeout.
// The second result is false if the queue stayed empty.
func (q *LineQueue) Get(timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	for len(q.lines) == 0 {
		ch := q.changed
		q.mu.Unlock()
		wait := time.Until(deadline)
		if wait <= 0 {
			return "", false
		}
		select {
		case <-ch:
		case <-time.After(wait):
			return "", false
		}
		q.mu.Lock()
	}
	line := q.lines[0]
	q.lines = q.lines[1:]
	q.mu.Unlock()
	return line, true
}

// Len returns the number of queued lines.
func (q *LineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lines)
}

// Clear drops all queued lines.
func (q *LineQueue) Clear() {
	q.mu.Lock()
	q.lines = nil
	q.mu.Unlock()
}
