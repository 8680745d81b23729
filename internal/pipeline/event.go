package pipeline

import (
	"time"

	"github.com/foxseedlab/n7chat/internal/conversation"
)

type State int32

const (
	StateIdle State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	EventPartialTranscript EventKind = iota + 1
	EventTurnCompleted
)

// Event is published on Pipeline.Events. Response and Result are set only for
// EventTurnCompleted.
type Event struct {
	Kind       EventKind
	Transcript string
	Response   string
	Result     conversation.TurnResult
	At         time.Time
}

func (e Event) Partial() bool {
	return e.Kind == EventPartialTranscript
}

func (e Event) IsMeitei() bool {
	return e.Result.IsMeitei()
}

type Source string

const (
	SourceTyped Source = "typed"
	SourceVoice Source = "voice"
)

// Turn is a completed turn handed to every registered TurnSink.
type Turn struct {
	ID         string
	SessionID  string
	Source     Source
	Transcript string
	Result     conversation.TurnResult
	At         time.Time
}
