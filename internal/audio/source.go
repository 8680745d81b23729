package audio

import (
	"context"
	"fmt"
	"sync"
)

// Device is a callback-driven capture backend. After Stop returns, deliver
// must not be called again until the next Start.
type Device interface {
	Start(deliver func(samples []float32)) error
	Stop() error
}

type Observer interface {
	ChunkCaptured()
	ChunkDropped()
}

type noopObserver struct{}

func (noopObserver) ChunkCaptured() {}
func (noopObserver) ChunkDropped()  {}

// Source re-blocks device frames into fixed-size chunks and feeds a Queue.
// The deliver path never blocks on the queue and never logs.
type Source struct {
	device    Device
	chunkSize int
	observer  Observer

	mu       sync.Mutex
	queue    *Queue
	pending  []float32
	seq      uint64
	running  bool
	stopping bool
}

func NewSource(device Device, chunkSize int, observer Observer) *Source {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Source{
		device:    device,
		chunkSize: chunkSize,
		observer:  observer,
		pending:   make([]float32, 0, chunkSize*2),
	}
}

func (s *Source) Start(q *Queue) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.queue = q
	s.pending = s.pending[:0]
	s.running = true
	s.mu.Unlock()

	if err := s.device.Start(s.deliver); err != nil {
		s.mu.Lock()
		s.running = false
		s.queue = nil
		s.mu.Unlock()
		return fmt.Errorf("start capture device: %w", err)
	}
	return nil
}

func (s *Source) deliver(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stopping {
		return
	}
	s.pending = append(s.pending, samples...)
	for len(s.pending) >= s.chunkSize {
		chunk := make([]float32, s.chunkSize)
		copy(chunk, s.pending[:s.chunkSize])
		n := copy(s.pending, s.pending[s.chunkSize:])
		s.pending = s.pending[:n]
		s.pushLocked(chunk)
	}
}

func (s *Source) pushLocked(samples []float32) {
	s.seq++
	if s.queue.TryPush(Chunk{Seq: s.seq, Samples: samples}) {
		s.observer.ChunkCaptured()
		return
	}
	s.observer.ChunkDropped()
}

// Stop halts the device, flushes the zero-padded residual chunk and enqueues
// exactly one end-of-stream marker for this run.
func (s *Source) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running || s.stopping {
		s.mu.Unlock()
		return nil
	}
	s.stopping = true
	s.mu.Unlock()

	stopErr := s.device.Stop()

	s.mu.Lock()
	q := s.queue
	if len(s.pending) > 0 {
		chunk := make([]float32, s.chunkSize)
		copy(chunk, s.pending)
		s.pushLocked(chunk)
	}
	s.pending = s.pending[:0]
	s.queue = nil
	s.running = false
	s.stopping = false
	s.mu.Unlock()

	if err := q.PushEndOfStream(ctx); err != nil {
		return fmt.Errorf("enqueue end of stream: %w", err)
	}
	if stopErr != nil {
		return fmt.Errorf("stop capture device: %w", stopErr)
	}
	return nil
}

func (s *Source) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
