package webhook

import "context"

type TurnPayload struct {
	TurnID           string `json:"turn_id"`
	SessionID        string `json:"session_id"`
	Source           string `json:"source"`
	Script           string `json:"script"`
	Transcript       string `json:"transcript"`
	Response         string `json:"response"`
	InboundFallback  bool   `json:"inbound_fallback"`
	OutboundFailed   bool   `json:"outbound_failed"`
	CompletionFailed bool   `json:"completion_failed"`
	Timestamp        string `json:"timestamp"`
}

type Sender interface {
	SendTurn(ctx context.Context, payload TurnPayload) error
}
