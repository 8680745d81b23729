package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/conversation"
	"github.com/foxseedlab/n7chat/internal/transcriber"
	"github.com/google/uuid"
)

var (
	ErrVoiceUnavailable = errors.New("voice input is unavailable")
	ErrClosed           = errors.New("pipeline is closed")
)

const (
	defaultJoinTimeout = 2 * time.Second
	defaultEventBuffer = 64
	defaultQueueSize   = 64
)

type Config struct {
	ChunkSize   int
	QueueSize   int
	Worker      transcriber.WorkerConfig
	JoinTimeout time.Duration
	EventBuffer int
}

type Observer interface {
	audio.Observer
	transcriber.Observer
	Listening(on bool)
	JoinAbandoned(goroutine string)
}

type noopObserver struct{}

func (noopObserver) ChunkCaptured()                         {}
func (noopObserver) ChunkDropped()                          {}
func (noopObserver) TranscriptionPass(time.Duration, error) {}
func (noopObserver) TranscriptEmitted(bool)                 {}
func (noopObserver) Listening(bool)                         {}
func (noopObserver) JoinAbandoned(string)                   {}

// run holds the goroutines of one listening session.
type run struct {
	transcripts  chan transcriber.Message
	workerDone   chan struct{}
	dispatchDone chan struct{}
}

// Pipeline ties capture, transcription and the conversation together.
// Without a recognizer or capture device it still serves typed turns.
type Pipeline struct {
	cfg          Config
	orchestrator *conversation.Orchestrator
	session      *conversation.Session
	device       audio.Device
	recognizer   transcriber.Recognizer
	observer     Observer
	events       chan Event
	sinks        []*sinkRunner

	ctx    context.Context
	cancel context.CancelFunc

	state atomic.Int32

	// turnMu guards closing and sinksClosed; inflight counts turns that may
	// still reach the sinks.
	turnMu      sync.RWMutex
	closing     bool
	sinksClosed bool
	inflight    sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	source     *audio.Source
	audioQueue *audio.Queue
	current    *run
}

func New(orchestrator *conversation.Orchestrator, session *conversation.Session, device audio.Device, recognizer transcriber.Recognizer, cfg Config, observer Observer, sinks ...TurnSink) *Pipeline {
	if cfg.ChunkSize <= 0 && recognizer != nil {
		cfg.ChunkSize = recognizer.ChunkSize()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = defaultJoinTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	if observer == nil {
		observer = noopObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg:          cfg,
		orchestrator: orchestrator,
		session:      session,
		device:       device,
		recognizer:   recognizer,
		observer:     observer,
		events:       make(chan Event, cfg.EventBuffer),
		ctx:          ctx,
		cancel:       cancel,
	}
	if p.VoiceAvailable() {
		p.source = audio.NewSource(device, cfg.ChunkSize, observer)
	} else {
		slog.Warn("voice input unavailable; serving typed turns only", "has_device", device != nil, "has_recognizer", recognizer != nil)
	}
	for _, s := range sinks {
		if s == nil {
			continue
		}
		p.sinks = append(p.sinks, startSink(ctx, s))
	}
	return p
}

func (p *Pipeline) VoiceAvailable() bool {
	return p.device != nil && p.recognizer != nil && p.cfg.ChunkSize > 0
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) Session() *conversation.Session {
	return p.session
}

// Events carries partial transcripts and completed voice turns. Events are
// dropped rather than blocking the pipeline when nobody reads.
func (p *Pipeline) Events() <-chan Event {
	return p.events
}

func (p *Pipeline) setState(s State) {
	prev := State(p.state.Swap(int32(s)))
	if prev != s {
		slog.Debug("pipeline state changed", "from", prev, "state", s)
	}
}

// StartVoiceInput is a no-op unless the pipeline is idle.
func (p *Pipeline) StartVoiceInput() error {
	if !p.VoiceAvailable() {
		return ErrVoiceUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.State() != StateIdle {
		slog.Debug("voice input start ignored", "state", p.State())
		return nil
	}
	p.setState(StateStarting)

	if p.audioQueue == nil {
		p.audioQueue = audio.NewQueue(p.cfg.QueueSize)
	}
	if n := p.audioQueue.Drain(); n > 0 {
		slog.Info("discarded stale audio chunks", "count", n)
	}
	if err := p.source.Start(p.audioQueue); err != nil {
		p.setState(StateIdle)
		return fmt.Errorf("failed to start voice input: %w", err)
	}

	runCtx, cancel := context.WithCancel(p.ctx)
	r := &run{
		transcripts:  make(chan transcriber.Message, p.cfg.EventBuffer),
		workerDone:   make(chan struct{}),
		dispatchDone: make(chan struct{}),
	}
	worker := transcriber.NewWorker(p.recognizer, p.audioQueue, r.transcripts, p.cfg.Worker, p.observer)
	// The worker signals the dispatcher itself, so an abandoned worker's final
	// transcript still arrives ahead of the end-of-stream marker. runCtx is only
	// cancelled once Run has returned, or by Close.
	go func() {
		defer close(r.workerDone)
		defer cancel()
		worker.Run(runCtx)
		select {
		case r.transcripts <- transcriber.EndOfStream():
		case <-p.ctx.Done():
		}
	}()
	// The dispatcher outlives runCtx so an in-flight turn can finish.
	go func() {
		defer close(r.dispatchDone)
		p.dispatch(p.ctx, r.transcripts)
	}()
	p.current = r

	p.setState(StateListening)
	p.observer.Listening(true)
	slog.Info("voice input started", "session_id", p.session.ID(), "chunk_size", p.cfg.ChunkSize)
	return nil
}

// StopVoiceInput is a no-op unless the pipeline is listening. Goroutines that
// miss the join timeout are abandoned and logged but left to finish their
// current pass; the next run gets a fresh audio queue so an abandoned worker
// never consumes its audio.
func (p *Pipeline) StopVoiceInput(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.State() != StateListening {
		slog.Debug("voice input stop ignored", "state", p.State())
		return nil
	}
	p.setState(StateStopping)
	r := p.current
	p.current = nil

	var errs []error
	pushCtx, cancelPush := context.WithTimeout(ctx, p.cfg.JoinTimeout)
	if err := p.source.Stop(pushCtx); err != nil {
		errs = append(errs, err)
	}
	cancelPush()

	if !p.join(ctx, r.workerDone) {
		slog.Warn("transcription worker did not stop in time; abandoning it", "timeout", p.cfg.JoinTimeout)
		p.observer.JoinAbandoned("worker")
		p.audioQueue = nil
	}
	if !p.join(ctx, r.dispatchDone) {
		slog.Warn("dispatcher did not stop in time; abandoning it", "timeout", p.cfg.JoinTimeout)
		p.observer.JoinAbandoned("dispatcher")
	}

	p.setState(StateIdle)
	p.observer.Listening(false)
	slog.Info("voice input stopped", "session_id", p.session.ID())
	return errors.Join(errs...)
}

// ToggleVoiceInput starts when idle and stops when listening. It reports
// whether the pipeline is listening afterwards.
func (p *Pipeline) ToggleVoiceInput(ctx context.Context) (bool, error) {
	if p.State() == StateListening {
		return false, p.StopVoiceInput(ctx)
	}
	if err := p.StartVoiceInput(); err != nil {
		return false, err
	}
	return p.State() == StateListening, nil
}

func (p *Pipeline) join(ctx context.Context, done <-chan struct{}) bool {
	timer := time.NewTimer(p.cfg.JoinTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (p *Pipeline) dispatch(ctx context.Context, transcripts <-chan transcriber.Message) {
	for {
		var msg transcriber.Message
		select {
		case msg = <-transcripts:
		case <-ctx.Done():
			return
		}
		if msg.IsEndOfStream() {
			return
		}
		ev, _ := msg.Event()
		if !ev.IsFinal {
			p.publish(Event{Kind: EventPartialTranscript, Transcript: ev.Text, At: ev.Timestamp})
			continue
		}
		p.voiceTurn(ctx, ev.Text)
	}
}

func (p *Pipeline) voiceTurn(ctx context.Context, text string) {
	defer p.beginTurn()()
	res := p.orchestrator.HandleTurn(ctx, p.session, text, nil)
	if res.Reply == "" {
		return
	}
	now := time.Now()
	p.publish(Event{Kind: EventTurnCompleted, Transcript: text, Response: res.Reply, Result: res, At: now})
	p.afterTurn(Turn{
		ID:         uuid.NewString(),
		SessionID:  p.session.ID(),
		Source:     SourceVoice,
		Transcript: text,
		Result:     res,
		At:         now,
	})
}

// beginTurn registers a turn with Close. Turns begun after Close started are
// not waited for; afterTurn drops them.
func (p *Pipeline) beginTurn() (done func()) {
	p.turnMu.RLock()
	defer p.turnMu.RUnlock()
	if p.closing {
		return func() {}
	}
	p.inflight.Add(1)
	return p.inflight.Done
}

func (p *Pipeline) publish(ev Event) {
	select {
	case p.events <- ev:
	default:
		if ev.Kind == EventTurnCompleted {
			slog.Warn("event queue full; turn event dropped", "session_id", p.session.ID())
			return
		}
		slog.Debug("event queue full; partial transcript dropped")
	}
}

// HandleTurn runs a typed turn without streaming.
func (p *Pipeline) HandleTurn(ctx context.Context, text string) conversation.TurnResult {
	return p.HandleTurnStream(ctx, text, nil)
}

// HandleTurnStream runs a typed turn. For Latin-script turns completion
// fragments are sent to deltas as they arrive.
func (p *Pipeline) HandleTurnStream(ctx context.Context, text string, deltas chan<- string) conversation.TurnResult {
	defer p.beginTurn()()
	res := p.orchestrator.HandleTurn(ctx, p.session, text, deltas)
	if res.Reply == "" {
		return res
	}
	p.afterTurn(Turn{
		ID:         uuid.NewString(),
		SessionID:  p.session.ID(),
		Source:     SourceTyped,
		Transcript: text,
		Result:     res,
		At:         time.Now(),
	})
	return res
}

func (p *Pipeline) ClearHistory() {
	p.session.Clear()
	slog.Info("conversation history cleared", "session_id", p.session.ID())
}

func (p *Pipeline) SetSystemPrompt(prompt string) {
	p.session.Reset(prompt)
	slog.Info("system prompt replaced", "session_id", p.session.ID())
}

func (p *Pipeline) afterTurn(turn Turn) {
	p.turnMu.RLock()
	defer p.turnMu.RUnlock()
	if p.sinksClosed {
		slog.Warn("pipeline closed; turn not delivered to sinks", "turn_id", turn.ID, "session_id", turn.SessionID)
		return
	}
	for _, s := range p.sinks {
		s.enqueue(turn)
	}
}

// Close stops voice input, waits for in-flight turns until ctx is done and
// drains the turn sinks. Turns still running after that finish without
// reaching the sinks.
func (p *Pipeline) Close(ctx context.Context) error {
	err := p.StopVoiceInput(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return err
	}
	p.closed = true
	p.mu.Unlock()

	p.turnMu.Lock()
	p.closing = true
	p.turnMu.Unlock()

	idle := make(chan struct{})
	go func() {
		p.inflight.Wait()
		close(idle)
	}()
	select {
	case <-idle:
	case <-ctx.Done():
		slog.Warn("turns still in flight at shutdown", "session_id", p.session.ID(), "error", ctx.Err())
	}

	p.turnMu.Lock()
	p.sinksClosed = true
	p.turnMu.Unlock()
	for _, s := range p.sinks {
		s.close(ctx)
	}
	p.cancel()
	slog.Info("pipeline closed", "session_id", p.session.ID())
	return err
}
