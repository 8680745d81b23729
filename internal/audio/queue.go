package audio

import (
	"context"
	"sync/atomic"
	"time"
)

// Queue is a bounded FIFO of chunk messages shared by one producer and one
// consumer.
type Queue struct {
	ch      chan Message
	dropped atomic.Uint64
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Message, capacity)}
}

// TryPush never blocks. When the queue is full the chunk is dropped and
// counted, and false is returned.
func (q *Queue) TryPush(c Chunk) bool {
	select {
	case q.ch <- ChunkMessage(c):
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// PushEndOfStream blocks until the marker is enqueued or ctx is done.
func (q *Queue) PushEndOfStream(ctx context.Context) error {
	select {
	case q.ch <- EndOfStream():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop waits up to timeout for the next message.
func (q *Queue) Pop(timeout time.Duration) (Message, bool) {
	select {
	case m := <-q.ch:
		return m, true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-q.ch:
		return m, true
	case <-timer.C:
		return Message{}, false
	}
}

// Drain discards every queued message and returns how many were removed.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

func (q *Queue) Len() int {
	return len(q.ch)
}

func (q *Queue) Cap() int {
	return cap(q.ch)
}

func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
