package audio

import (
	"context"
	"testing"
	"time"
)

func TestQueue_TryPushDropsNewestWhenFull(t *testing.T) {
	q := NewQueue(2)
	if !q.TryPush(Chunk{Seq: 1}) || !q.TryPush(Chunk{Seq: 2}) {
		t.Fatal("expected first two pushes to succeed")
	}
	if q.TryPush(Chunk{Seq: 3}) {
		t.Fatal("expected push into full queue to fail")
	}
	if q.Dropped() != 1 {
		t.Fatalf("expected 1 dropped chunk, got %d", q.Dropped())
	}

	for _, want := range []uint64{1, 2} {
		m, ok := q.Pop(time.Millisecond)
		if !ok {
			t.Fatal("expected a message")
		}
		c, ok := m.Chunk()
		if !ok {
			t.Fatal("expected a chunk message")
		}
		if c.Seq != want {
			t.Fatalf("expected seq %d, got %d", want, c.Seq)
		}
	}
}

func TestQueue_PopTimesOut(t *testing.T) {
	q := NewQueue(1)
	start := time.Now()
	if _, ok := q.Pop(20 * time.Millisecond); ok {
		t.Fatal("expected no message from empty queue")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("expected pop to wait for the timeout")
	}
}

func TestQueue_PushEndOfStreamRespectsContext(t *testing.T) {
	q := NewQueue(1)
	q.TryPush(Chunk{Seq: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.PushEndOfStream(ctx); err == nil {
		t.Fatal("expected error when queue stays full")
	}

	q.Drain()
	if err := q.PushEndOfStream(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	m, ok := q.Pop(time.Millisecond)
	if !ok || !m.IsEndOfStream() {
		t.Fatal("expected end of stream message")
	}
	if _, ok := m.Chunk(); ok {
		t.Fatal("end of stream must not carry a chunk")
	}
}

func TestQueue_Drain(t *testing.T) {
	q := NewQueue(4)
	q.TryPush(Chunk{Seq: 1})
	q.TryPush(Chunk{Seq: 2})
	q.TryPush(Chunk{Seq: 3})
	if n := q.Drain(); n != 3 {
		t.Fatalf("expected 3 drained, got %d", n)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}
