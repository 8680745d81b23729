package speaker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/foxseedlab/n7chat/internal/audio"
)

const (
	// Raw clips without a RIFF header are assumed to be mono PCM16 at this rate.
	rawClipSampleRate = 44000
	playbackPoll      = 10 * time.Millisecond
	otoBufferSize     = 100 * time.Millisecond
)

// OtoPlayer plays PCM16 WAV clips on the default output device. The output
// context is opened on the first clip and fixed to its format.
type OtoPlayer struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
}

func NewOtoPlayer() *OtoPlayer {
	return &OtoPlayer{}
}

func (p *OtoPlayer) Play(ctx context.Context, clip []byte) error {
	pcm, rate, channels, err := clipPCM(clip)
	if err != nil {
		return err
	}
	otoCtx, err := p.context(rate, channels)
	if err != nil {
		return err
	}

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer func() {
		_ = player.Close()
	}()
	player.Play()
	ticker := time.NewTicker(playbackPoll)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return player.Err()
}

func (p *OtoPlayer) context(rate, channels int) (*oto.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		if rate != p.sampleRate || channels != p.channels {
			return nil, fmt.Errorf("clip format %d Hz x%d does not match output %d Hz x%d", rate, channels, p.sampleRate, p.channels)
		}
		return p.ctx, nil
	}
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("open audio output: %w", err)
	}
	<-ready
	p.ctx = otoCtx
	p.sampleRate = rate
	p.channels = channels
	return otoCtx, nil
}

func clipPCM(clip []byte) ([]byte, int, int, error) {
	info, err := audio.DecodeWAV(clip)
	if errors.Is(err, audio.ErrInvalidWAV) && !bytes.HasPrefix(clip, []byte("RIFF")) {
		return clip, rawClipSampleRate, 1, nil
	}
	if err != nil {
		return nil, 0, 0, err
	}
	return info.PCM, info.SampleRate, info.Channels, nil
}
