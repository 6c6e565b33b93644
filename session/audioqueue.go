package session

import "sync"

// AudioQueue is an unbounded ordered FIFO of raw audio payloads bridging
// the dispatcher (producer) to the relay's outbound drain (consumer). No
// backpressure is applied upstream: a slow consumer accumulates audio
// rather than stalling transcript decoding.
type AudioQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  [][]byte
	closed bool
}

func NewAudioQueue() *AudioQueue {
	q := &AudioQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends one payload. Pushing to a closed queue is a no-op.
func (q *AudioQueue) Push(p []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, p)
	q.cond.Signal()
}

// Pop blocks until a payload is available or the queue is closed. The
// second return is false once the queue is closed and drained.
func (q *AudioQueue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

// Len reports the number of queued payloads.
func (q *AudioQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close wakes any blocked consumer. Remaining payloads can still be popped;
// Close is idempotent.
func (q *AudioQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}
