package audio

import (
	"github.com/foxseedlab/n7chat/internal/audio"
	"github.com/foxseedlab/n7chat/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (audio.PacketDecoderFactory, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewOpusDecoderFactory(c.AudioSampleRate), nil
	})
	do.Provide(injector, func(i do.Injector) (*Microphone, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewMicrophone(c.AudioSampleRate)
	})
}
