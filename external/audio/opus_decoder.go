//go:build opus

package audio

import (
	"fmt"

	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/hraban/opus"
)

const (
	opusSampleRate  = 48000
	opusChannels    = 2
	opusFrameMs     = 20
	opusMaxFrames   = 6
	samplesPerFrame = opusSampleRate * opusFrameMs * opusChannels / 1000
)

// OpusDecoder turns 48 kHz stereo voice packets into mono samples at an
// integer fraction of 48 kHz.
type OpusDecoder struct {
	dec        *opus.Decoder
	targetRate int
	factor     int
	pcm        []int16
}

func NewOpusDecoderFactory(targetRate int) audio.PacketDecoderFactory {
	return func() (audio.PacketDecoder, error) {
		return NewOpusDecoder(targetRate)
	}
}

func NewOpusDecoder(targetRate int) (*OpusDecoder, error) {
	if targetRate <= 0 || opusSampleRate%targetRate != 0 {
		return nil, fmt.Errorf("unsupported target sample rate %d", targetRate)
	}
	dec, err := opus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}
	return &OpusDecoder{
		dec:        dec,
		targetRate: targetRate,
		factor:     opusSampleRate / targetRate,
		pcm:        make([]int16, samplesPerFrame*opusMaxFrames),
	}, nil
}

func (d *OpusDecoder) Decode(packet []byte) ([]float32, error) {
	if len(packet) == 0 {
		return nil, nil
	}
	n, err := d.dec.Decode(packet, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("decode opus packet: %w", err)
	}
	stereo := make([]float32, n*opusChannels)
	for i := range stereo {
		stereo[i] = float32(d.pcm[i]) / 32768
	}
	return audio.Decimate(audio.Downmix(stereo, opusChannels), d.factor), nil
}

func (d *OpusDecoder) SampleRate() int {
	return d.targetRate
}

func (d *OpusDecoder) Close() {}
