//go:build !opus

package audio

import (
	"errors"

	"github.com/foxseedlab/n7chat/internal/audio"
)

var ErrOpusUnavailable = errors.New("opus decoding requires building with -tags opus")

func NewOpusDecoderFactory(int) audio.PacketDecoderFactory {
	return func() (audio.PacketDecoder, error) {
		return nil, ErrOpusUnavailable
	}
}
