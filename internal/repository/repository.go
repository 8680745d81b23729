package repository

import "context"

// TurnArchive is a write-only log of completed turns. Nothing reads it back
// into conversation history.
type TurnArchive interface {
	SaveTurn(ctx context.Context, turn TurnRecord) error
	Close()
}
