package pipeline

import (
	"context"
	"log/slog"
	"time"
)

const (
	sinkQueueSize = 16
	sinkTimeout   = 30 * time.Second
)

// TurnSink receives completed turns after they are handled. Sinks run on
// their own goroutine, one turn at a time, in completion order.
type TurnSink interface {
	Name() string
	TurnCompleted(ctx context.Context, turn Turn) error
}

type sinkRunner struct {
	sink  TurnSink
	turns chan Turn
	done  chan struct{}
}

func startSink(ctx context.Context, sink TurnSink) *sinkRunner {
	r := &sinkRunner{
		sink:  sink,
		turns: make(chan Turn, sinkQueueSize),
		done:  make(chan struct{}),
	}
	go r.loop(ctx)
	return r
}

func (r *sinkRunner) loop(ctx context.Context) {
	defer close(r.done)
	for turn := range r.turns {
		turnCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
		if err := r.sink.TurnCompleted(turnCtx, turn); err != nil {
			slog.Error("turn sink failed", "sink", r.sink.Name(), "turn_id", turn.ID, "session_id", turn.SessionID, "error", err)
		}
		cancel()
	}
}

func (r *sinkRunner) enqueue(turn Turn) {
	select {
	case r.turns <- turn:
	default:
		slog.Warn("turn sink backlog full; turn skipped", "sink", r.sink.Name(), "turn_id", turn.ID)
	}
}

func (r *sinkRunner) close(ctx context.Context) {
	close(r.turns)
	select {
	case <-r.done:
	case <-ctx.Done():
		slog.Warn("turn sink did not drain before shutdown", "sink", r.sink.Name(), "error", ctx.Err())
	}
}
