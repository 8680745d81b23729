package transcriber

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/n7chat/internal/audio"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultPassTimeout  = 15 * time.Second
)

type WorkerConfig struct {
	TranscribeEvery int
	PollInterval    time.Duration
	PassTimeout     time.Duration
	// SilenceFinalize ends an utterance after this much trailing quiet audio.
	// Zero keeps the utterance open until end of stream.
	SilenceFinalize time.Duration
	SilenceRMS      float64
}

type Observer interface {
	TranscriptionPass(d time.Duration, err error)
	TranscriptEmitted(final bool)
}

type noopObserver struct{}

func (noopObserver) TranscriptionPass(time.Duration, error) {}
func (noopObserver) TranscriptEmitted(bool)                 {}

// Worker drains the chunk queue, re-transcribes the whole utterance buffer
// every TranscribeEvery chunks and publishes deduplicated transcript events.
type Worker struct {
	recognizer Recognizer
	queue      *audio.Queue
	out        chan<- Message
	cfg        WorkerConfig
	observer   Observer

	buffer      []float32
	chunks      int
	lastEmitted string
	heardSpeech bool
	quietFor    time.Duration
}

func NewWorker(recognizer Recognizer, queue *audio.Queue, out chan<- Message, cfg WorkerConfig, observer Observer) *Worker {
	if cfg.TranscribeEvery <= 0 {
		cfg.TranscribeEvery = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = defaultPassTimeout
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Worker{
		recognizer: recognizer,
		queue:      queue,
		out:        out,
		cfg:        cfg,
		observer:   observer,
	}
}

// Run returns after the end-of-stream marker has been consumed and the final
// pass has been published. A cancelled ctx also ends Run once the queue is
// idle.
func (w *Worker) Run(ctx context.Context) {
	for {
		msg, ok := w.queue.Pop(w.cfg.PollInterval)
		if !ok {
			if ctx.Err() != nil {
				slog.Debug("transcription worker cancelled", "error", ctx.Err())
				return
			}
			continue
		}
		if msg.IsEndOfStream() {
			w.finalize(ctx)
			slog.Debug("transcription worker stopped")
			return
		}
		chunk, _ := msg.Chunk()
		if !w.accept(chunk) {
			continue
		}
		if w.utteranceEnded(chunk) {
			w.finalize(ctx)
			w.reset()
			continue
		}
		if w.chunks%w.cfg.TranscribeEvery == 0 {
			w.partial(ctx)
		}
	}
}

func (w *Worker) accept(chunk audio.Chunk) bool {
	if w.endpointing() && !w.heardSpeech && audio.RMS(chunk.Samples) < w.cfg.SilenceRMS {
		return false
	}
	w.buffer = append(w.buffer, chunk.Samples...)
	w.chunks++
	return true
}

func (w *Worker) endpointing() bool {
	return w.cfg.SilenceFinalize > 0
}

func (w *Worker) utteranceEnded(chunk audio.Chunk) bool {
	if !w.endpointing() {
		return false
	}
	if audio.RMS(chunk.Samples) >= w.cfg.SilenceRMS {
		w.heardSpeech = true
		w.quietFor = 0
		return false
	}
	if !w.heardSpeech {
		return false
	}
	w.quietFor += w.chunkDuration(len(chunk.Samples))
	return w.quietFor >= w.cfg.SilenceFinalize
}

func (w *Worker) chunkDuration(samples int) time.Duration {
	rate := w.recognizer.SampleRate()
	if rate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(rate)
}

func (w *Worker) partial(ctx context.Context) {
	text, err := w.transcribe(ctx)
	if err != nil {
		slog.Warn("partial transcription failed; continuing", "error", err, "buffered_chunks", w.chunks)
		return
	}
	if text == "" || text == w.lastEmitted {
		return
	}
	ev := Event{Text: text, IsFinal: false, Timestamp: time.Now()}
	select {
	case w.out <- EventMessage(ev):
		w.lastEmitted = text
		w.observer.TranscriptEmitted(false)
	default:
		slog.Debug("transcript queue full; partial skipped", "text_length", len(text))
	}
}

// finalize publishes exactly one final event for a non-empty buffer. A failed
// final pass falls back to the last published partial.
func (w *Worker) finalize(ctx context.Context) {
	if len(w.buffer) == 0 {
		return
	}
	text, err := w.transcribe(ctx)
	if err != nil {
		slog.Warn("final transcription failed; using last partial", "error", err, "buffered_chunks", w.chunks)
		text = w.lastEmitted
	}
	if text == "" {
		return
	}
	ev := Event{Text: text, IsFinal: true, Timestamp: time.Now()}
	select {
	case w.out <- EventMessage(ev):
		w.lastEmitted = text
		w.observer.TranscriptEmitted(true)
	case <-ctx.Done():
		slog.Warn("final transcript dropped; pipeline closed", "error", ctx.Err())
	}
}

func (w *Worker) transcribe(ctx context.Context) (string, error) {
	passCtx, cancel := context.WithTimeout(ctx, w.cfg.PassTimeout)
	defer cancel()
	started := time.Now()
	text, err := w.recognizer.Transcribe(passCtx, w.buffer)
	w.observer.TranscriptionPass(time.Since(started), err)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (w *Worker) reset() {
	w.buffer = w.buffer[:0]
	w.chunks = 0
	w.lastEmitted = ""
	w.heardSpeech = false
	w.quietFor = 0
}
