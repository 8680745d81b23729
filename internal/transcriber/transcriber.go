package transcriber

import (
	"context"
	"errors"
	"time"
)

var ErrRecognizerUnavailable = errors.New("speech recognizer is unavailable")

// Recognizer transcribes a complete mono buffer. Implementations must not
// retain the samples slice after returning.
type Recognizer interface {
	Transcribe(ctx context.Context, samples []float32) (string, error)
	SampleRate() int
	ChunkSize() int
}

type Event struct {
	Text      string
	IsFinal   bool
	Timestamp time.Time
}

// Message is the element type of the transcript queue.
type Message struct {
	event Event
	eos   bool
}

func EventMessage(e Event) Message {
	return Message{event: e}
}

func EndOfStream() Message {
	return Message{eos: true}
}

func (m Message) IsEndOfStream() bool {
	return m.eos
}

func (m Message) Event() (Event, bool) {
	if m.eos {
		return Event{}, false
	}
	return m.event, true
}
