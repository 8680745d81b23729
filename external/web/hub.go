package web

import (
	"context"
	"log/slog"
	"sync"

	"github.com/foxseedlab/n7chat/internal/pipeline"
)

const subscriberBuffer = 32

// TranscriptionEvent is the JSON body of one SSE data line.
type TranscriptionEvent struct {
	Transcript string `json:"transcript"`
	Response   string `json:"response"`
	IsMeitei   bool   `json:"is_meitei"`
	Partial    bool   `json:"partial"`
}

func newTranscriptionEvent(ev pipeline.Event) TranscriptionEvent {
	return TranscriptionEvent{
		Transcript: ev.Transcript,
		Response:   ev.Response,
		IsMeitei:   ev.IsMeitei(),
		Partial:    ev.Partial(),
	}
}

// Hub fans pipeline events out to every connected SSE client. A slow client
// loses events instead of holding up the others.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan TranscriptionEvent]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan TranscriptionEvent]struct{})}
}

// Run forwards events until ctx is done or events is closed, then closes all
// subscriber channels.
func (h *Hub) Run(ctx context.Context, events <-chan pipeline.Event) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(newTranscriptionEvent(ev))
		}
	}
}

func (h *Hub) Subscribe() (<-chan TranscriptionEvent, func()) {
	ch := make(chan TranscriptionEvent, subscriberBuffer)
	h.mu.Lock()
	if h.closed {
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(ev TranscriptionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("sse subscriber is behind; event dropped", "partial", ev.Partial)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
