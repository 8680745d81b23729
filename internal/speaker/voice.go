package speaker

import (
	"context"
	"fmt"
	"log/slog"
)

// Voice speaks replies sentence by sentence so playback starts before the
// whole reply is synthesized.
type Voice struct {
	speaker Speaker
	player  Player
}

func NewVoice(s Speaker, p Player) *Voice {
	return &Voice{speaker: s, player: p}
}

func (v *Voice) Say(ctx context.Context, text string) error {
	for _, sentence := range SplitSentences(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		clip, err := v.speaker.Synthesize(ctx, sentence)
		if err != nil {
			return fmt.Errorf("synthesize sentence: %w", err)
		}
		if len(clip) == 0 {
			slog.Debug("speaker returned empty clip; skipping sentence")
			continue
		}
		if err := v.player.Play(ctx, clip); err != nil {
			return fmt.Errorf("play clip: %w", err)
		}
	}
	return nil
}
