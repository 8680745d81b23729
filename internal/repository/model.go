package repository

import "time"

type TurnSource string

const (
	TurnSourceTyped TurnSource = "typed"
	TurnSourceVoice TurnSource = "voice"
)

type TurnRecord struct {
	ID               string
	SessionID        string
	Source           TurnSource
	Script           string
	Transcript       string
	Reply            string
	InboundFallback  bool
	OutboundFailed   bool
	CompletionFailed bool
	CreatedAt        time.Time
}
