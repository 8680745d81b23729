package speaker

import "context"

// Speaker renders text to an encoded audio clip (WAV).
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Player interface {
	Play(ctx context.Context, clip []byte) error
}
